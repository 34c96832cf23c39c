package monitoring

import "time"

// DefaultRecentWindowDays is the look-back of Recent when none is configured.
const DefaultRecentWindowDays = 30

// ComputeStats aggregates records in a single pass. Every data type is
// present in the distribution.
func ComputeStats(records []MonitoringRecord) MonitoringStats {
	stats := MonitoringStats{
		TotalRecords:         len(records),
		DataTypeDistribution: make(map[DataType]int, len(DataTypes)),
	}
	for _, dt := range DataTypes {
		stats.DataTypeDistribution[dt] = 0
	}

	projects := make(map[string]struct{})
	for _, r := range records {
		switch r.VerificationStatus {
		case VerificationPending:
			stats.PendingVerification++
		case VerificationVerified:
			stats.Verified++
		}
		if r.SyncStatus != SyncSynced {
			stats.PendingSync++
		}
		projects[r.ProjectID] = struct{}{}
		if r.DataType.Valid() {
			stats.DataTypeDistribution[r.DataType]++
		}
	}
	stats.DistinctProjects = len(projects)
	return stats
}

// RequiringAttention returns urgent records and records past their
// submission deadline that are not completed.
func RequiringAttention(records []MonitoringRecord, now time.Time) []MonitoringRecord {
	out := []MonitoringRecord{}
	for _, r := range records {
		overdue := r.SubmissionDeadline != nil && r.SubmissionDeadline.Before(now) && !r.Completed
		if r.Priority == PriorityUrgent || overdue {
			out = append(out, r)
		}
	}
	return out
}

// Recent returns records monitored strictly within the last days days. A
// record exactly days old is excluded.
func Recent(records []MonitoringRecord, now time.Time, days int) []MonitoringRecord {
	cutoff := now.AddDate(0, 0, -days)
	out := []MonitoringRecord{}
	for _, r := range records {
		if r.MonitoringDate.After(cutoff) {
			out = append(out, r)
		}
	}
	return out
}
