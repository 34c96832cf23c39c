// Package monitoring records field observations for carbon projects and
// derives review statistics from them.
package monitoring

import (
	"time"
)

// DataType classifies a monitoring record
type DataType string

const (
	DataTypeSoilSample         DataType = "soil_sample"
	DataTypeVegetationSurvey   DataType = "vegetation_survey"
	DataTypeHydrology          DataType = "hydrology"
	DataTypeBiodiversity       DataType = "biodiversity"
	DataTypeCarbonMeasurement  DataType = "carbon_measurement"
	DataTypeClimate            DataType = "climate"
	DataTypePhotoDocumentation DataType = "photo_documentation"
	DataTypeGeneral            DataType = "general"
)

// DataTypes lists every data type, in display order
var DataTypes = []DataType{
	DataTypeSoilSample,
	DataTypeVegetationSurvey,
	DataTypeHydrology,
	DataTypeBiodiversity,
	DataTypeCarbonMeasurement,
	DataTypeClimate,
	DataTypePhotoDocumentation,
	DataTypeGeneral,
}

func (d DataType) Valid() bool {
	for _, known := range DataTypes {
		if d == known {
			return true
		}
	}
	return false
}

type VerificationStatus string

const (
	VerificationPending       VerificationStatus = "pending"
	VerificationVerified      VerificationStatus = "verified"
	VerificationRejected      VerificationStatus = "rejected"
	VerificationClarification VerificationStatus = "clarification"
	VerificationInReview      VerificationStatus = "in_review"
)

func (v VerificationStatus) Valid() bool {
	switch v {
	case VerificationPending, VerificationVerified, VerificationRejected,
		VerificationClarification, VerificationInReview:
		return true
	}
	return false
}

type SyncStatus string

const (
	SyncLocal   SyncStatus = "local"
	SyncSyncing SyncStatus = "syncing"
	SyncSynced  SyncStatus = "synced"
	SyncError   SyncStatus = "error"
)

func (s SyncStatus) Valid() bool {
	switch s {
	case SyncLocal, SyncSyncing, SyncSynced, SyncError:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// SoilData holds soil sample measurements
type SoilData struct {
	PH            float64 `json:"ph"`
	OrganicCarbon float64 `json:"organic_carbon"`
	Moisture      float64 `json:"moisture"`
	BulkDensity   float64 `json:"bulk_density"`
	SampleDepthCm float64 `json:"sample_depth_cm"`
	Salinity      float64 `json:"salinity"`
}

// VegetationData holds vegetation survey measurements
type VegetationData struct {
	CanopyCover    float64 `json:"canopy_cover"`
	TreeDensity    float64 `json:"tree_density"`
	AverageHeightM float64 `json:"average_height_m"`
	AverageDBHCm   float64 `json:"average_dbh_cm"`
	SurvivalRate   float64 `json:"survival_rate"`
	SpeciesCount   float64 `json:"species_count"`
}

// HydrologyData holds water measurements
type HydrologyData struct {
	WaterLevelM     float64 `json:"water_level_m"`
	Salinity        float64 `json:"salinity"`
	Temperature     float64 `json:"temperature"`
	DissolvedOxygen float64 `json:"dissolved_oxygen"`
	Turbidity       float64 `json:"turbidity"`
}

// BiodiversityData holds species observations
type BiodiversityData struct {
	SpeciesRichness float64 `json:"species_richness"`
	ShannonIndex    float64 `json:"shannon_index"`
	BirdCount       float64 `json:"bird_count"`
	FaunaSightings  float64 `json:"fauna_sightings"`
}

// CarbonData holds carbon stock estimates in tCO2e or t/ha
type CarbonData struct {
	AbovegroundBiomass float64 `json:"aboveground_biomass"`
	BelowgroundBiomass float64 `json:"belowground_biomass"`
	SoilCarbonStock    float64 `json:"soil_carbon_stock"`
	TotalSequestration float64 `json:"total_sequestration"`
}

// ClimateData holds weather observations
type ClimateData struct {
	Temperature float64 `json:"temperature"`
	Rainfall    float64 `json:"rainfall"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
}

// Photo is an uploaded picture attached to a record
type Photo struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size"`
	Caption     string    `json:"caption,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// MonitoringRecord is one field observation
type MonitoringRecord struct {
	ID                 string             `json:"id"`
	ProjectID          string             `json:"project_id"`
	ProjectName        string             `json:"project_name"`
	DataType           DataType           `json:"data_type"`
	MonitoringDate     time.Time          `json:"monitoring_date"`
	Latitude           *float64           `json:"latitude,omitempty"`
	Longitude          *float64           `json:"longitude,omitempty"`
	Soil               *SoilData          `json:"soil,omitempty"`
	Vegetation         *VegetationData    `json:"vegetation,omitempty"`
	Hydrology          *HydrologyData     `json:"hydrology,omitempty"`
	Biodiversity       *BiodiversityData  `json:"biodiversity,omitempty"`
	Carbon             *CarbonData        `json:"carbon,omitempty"`
	Climate            *ClimateData       `json:"climate,omitempty"`
	Photos             []Photo            `json:"photos"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	SyncStatus         SyncStatus         `json:"sync_status"`
	Priority           Priority           `json:"priority"`
	Notes              string             `json:"notes"`
	Completed          bool               `json:"completed"`
	SubmissionDeadline *time.Time         `json:"submission_deadline,omitempty"`
	RecordedBy         string             `json:"recorded_by,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func (r MonitoringRecord) RecordID() string { return r.ID }

func (r MonitoringRecord) Touched(at time.Time) MonitoringRecord {
	r.UpdatedAt = at
	return r
}

// MonitoringStats summarizes the monitoring collection
type MonitoringStats struct {
	TotalRecords         int              `json:"total_records"`
	PendingVerification  int              `json:"pending_verification"`
	Verified             int              `json:"verified"`
	PendingSync          int              `json:"pending_sync"`
	DistinctProjects     int              `json:"distinct_projects"`
	DataTypeDistribution map[DataType]int `json:"data_type_distribution"`
}

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	ProjectID string
	DataType  DataType
}

// CreateRecordRequest is the body of POST /monitoring
type CreateRecordRequest struct {
	ID                 string            `json:"id"`
	ProjectID          string            `json:"project_id" binding:"required"`
	ProjectName        string            `json:"project_name" binding:"required"`
	DataType           DataType          `json:"data_type" binding:"required"`
	MonitoringDate     *time.Time        `json:"monitoring_date"`
	Latitude           *float64          `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude          *float64          `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
	Soil               *SoilData         `json:"soil"`
	Vegetation         *VegetationData   `json:"vegetation"`
	Hydrology          *HydrologyData    `json:"hydrology"`
	Biodiversity       *BiodiversityData `json:"biodiversity"`
	Carbon             *CarbonData       `json:"carbon"`
	Climate            *ClimateData      `json:"climate"`
	Priority           Priority          `json:"priority"`
	Notes              string            `json:"notes"`
	SubmissionDeadline *time.Time        `json:"submission_deadline"`
}

// Record converts the request into a record. Defaults are applied by the
// service.
func (req CreateRecordRequest) Record(recordedBy string) MonitoringRecord {
	rec := MonitoringRecord{
		ID:                 req.ID,
		ProjectID:          req.ProjectID,
		ProjectName:        req.ProjectName,
		DataType:           req.DataType,
		Latitude:           req.Latitude,
		Longitude:          req.Longitude,
		Soil:               req.Soil,
		Vegetation:         req.Vegetation,
		Hydrology:          req.Hydrology,
		Biodiversity:       req.Biodiversity,
		Carbon:             req.Carbon,
		Climate:            req.Climate,
		Priority:           req.Priority,
		Notes:              req.Notes,
		SubmissionDeadline: req.SubmissionDeadline,
		RecordedBy:         recordedBy,
	}
	if req.MonitoringDate != nil {
		rec.MonitoringDate = *req.MonitoringDate
	}
	return rec
}

// UpdateVerificationRequest is the body of PATCH /monitoring/:id/verification
type UpdateVerificationRequest struct {
	Status   VerificationStatus `json:"status" binding:"required"`
	Note     string             `json:"note"`
	Reviewer string             `json:"reviewer"`
}

// UpdateSyncRequest is the body of PATCH /monitoring/:id/sync
type UpdateSyncRequest struct {
	Status SyncStatus `json:"status" binding:"required"`
}
