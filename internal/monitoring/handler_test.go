package monitoring

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbon-scribe/project-portal/ledger-backend/pkg/storage"
)

func setupRouter(t *testing.T, photos storage.S3Client) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := newTestService(t, photos)
	router := gin.New()
	NewHandler(svc, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"))
	return router, svc
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateRecordEndpoint(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doJSON(router, http.MethodPost, "/api/v1/monitoring", gin.H{
		"project_id":   "p1",
		"project_name": "Sundarbans",
		"data_type":    "vegetation_survey",
		"vegetation":   gin.H{"canopy_cover": 72.5},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var rec MonitoringRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "MON-1748779200000-1234", rec.ID)
	require.NotNil(t, rec.Vegetation)
	assert.Equal(t, 72.5, rec.Vegetation.CanopyCover)

	w = doJSON(router, http.MethodPost, "/api/v1/monitoring", gin.H{
		"project_id": "p1", "project_name": "x", "data_type": "satellite",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/monitoring", gin.H{
		"project_id": "p1", "project_name": "x", "data_type": "climate", "latitude": 123,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerificationEndpoint(t *testing.T) {
	router, svc := setupRouter(t, nil)
	_, err := svc.Create(t.Context(), MonitoringRecord{ID: "m1", DataType: DataTypeGeneral})
	require.NoError(t, err)

	w := doJSON(router, http.MethodPatch, "/api/v1/monitoring/m1/verification", gin.H{
		"status": "rejected", "note": "blurry photos", "reviewer": "bob",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "changed to rejected by bob: blurry photos")

	w = doJSON(router, http.MethodPatch, "/api/v1/monitoring/ghost/verification", gin.H{"status": "verified"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatsAndQueries(t *testing.T) {
	router, svc := setupRouter(t, nil)
	_, err := svc.Create(t.Context(), MonitoringRecord{ID: "m1", ProjectID: "p1", DataType: DataTypeClimate, Priority: PriorityUrgent})
	require.NoError(t, err)

	w := doJSON(router, http.MethodGet, "/api/v1/monitoring/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats MonitoringStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalRecords)
	assert.Equal(t, 1, stats.DataTypeDistribution[DataTypeClimate])
	assert.Equal(t, 0, stats.DataTypeDistribution[DataTypeGeneral])

	w = doJSON(router, http.MethodGet, "/api/v1/monitoring/attention", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = doJSON(router, http.MethodGet, "/api/v1/monitoring/recent?days=7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = doJSON(router, http.MethodGet, "/api/v1/monitoring/recent?days=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadPhotoEndpoint(t *testing.T) {
	photos := storage.NewMemoryS3Client()
	router, svc := setupRouter(t, photos)
	_, err := svc.Create(t.Context(), MonitoringRecord{ID: "m1", ProjectID: "p1", DataType: DataTypePhotoDocumentation})
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("photo", "mangrove.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake-jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("caption", "seedlings"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/monitoring/m1/photos", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var photo Photo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &photo))
	assert.Equal(t, "mangrove.jpg", photo.Filename)
	assert.Equal(t, "seedlings", photo.Caption)
	assert.Equal(t, int64(15), photo.Size)
	assert.Equal(t, 1, photos.Len())

	req = httptest.NewRequest(http.MethodPost, "/api/v1/monitoring/m1/photos", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateUnknownRecordReportsNotUpdated(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doJSON(router, http.MethodPut, "/api/v1/monitoring/ghost", gin.H{"notes": "x"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"updated":false`)
}

func TestSitesEndpoint(t *testing.T) {
	router, svc := setupRouter(t, nil)
	lat, lon := 21.95, 89.18
	_, err := svc.Create(t.Context(), MonitoringRecord{ID: "located", ProjectID: "p1", DataType: DataTypeSoilSample, Latitude: &lat, Longitude: &lon})
	require.NoError(t, err)
	_, err = svc.Create(t.Context(), MonitoringRecord{ID: "unlocated", ProjectID: "p1", DataType: DataTypeSoilSample})
	require.NoError(t, err)

	w := doJSON(router, http.MethodGet, "/api/v1/monitoring/geojson?project_id=p1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/geo+json")

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID       string `json:"id"`
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "located", fc.Features[0].ID)
	assert.Equal(t, []float64{89.18, 21.95}, fc.Features[0].Geometry.Coordinates)
	assert.Equal(t, "soil_sample", fc.Features[0].Properties["data_type"])
}
