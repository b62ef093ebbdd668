package models

import "time"

// Typed per-component metric payloads. Each probe produces exactly one of
// these per cycle; the threshold evaluator reads them, the control surface
// serializes them verbatim.

type SlowQuery struct {
	Query      string  `json:"query"`
	DurationMs float64 `json:"duration_ms"`
	Calls      int64   `json:"calls"`
}

type ConnectionStats struct {
	ActiveConnections int     `json:"active_connections"`
	IdleConnections   int     `json:"idle_connections"`
	MaxConnections    int     `json:"max_connections"`
	PoolUsagePct      float64 `json:"pool_usage_pct"`
}

type TableStat struct {
	TableName string `json:"table_name"`
	RowCount  int64  `json:"row_count"`
	SizeBytes int64  `json:"size_bytes"`
}

type LockInfo struct {
	Relation string  `json:"relation"`
	Mode     string  `json:"mode"`
	Granted  bool    `json:"granted"`
	WaitMs   float64 `json:"wait_ms"`
}

type DatabaseMetrics struct {
	SlowQueries     []SlowQuery     `json:"slow_queries"`
	ConnectionStats ConnectionStats `json:"connection_stats"`
	TableStats      []TableStat     `json:"table_stats"`
	Locks           []LockInfo      `json:"locks"`
}

type QueueStatusStat struct {
	Count           int     `json:"count"`
	AverageAgeHours float64 `json:"average_age_hours"`
	MaxAgeHours     float64 `json:"max_age_hours"`
	MinAgeHours     float64 `json:"min_age_hours"`
}

type StuckRepair struct {
	RepairID       int64     `json:"repair_id"`
	UnitNumber     string    `json:"unit_number"`
	Status         string    `json:"status"`
	CustomerName   string    `json:"customer_name"`
	TechnicianName string    `json:"technician_name"`
	StuckHours     float64   `json:"stuck_hours"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ProcessingTimes struct {
	AverageCompletionHours float64 `json:"average_completion_hours"`
	MinCompletionHours     float64 `json:"min_completion_hours"`
	MaxCompletionHours     float64 `json:"max_completion_hours"`
	MedianCompletionHours  float64 `json:"median_completion_hours"`
	P95CompletionHours     float64 `json:"p95_completion_hours"`
}

type TechnicianLoad struct {
	TechnicianID       int64   `json:"technician_id"`
	TechnicianName     string  `json:"technician_name"`
	TotalActiveRepairs int     `json:"total_active_repairs"`
	InProgress         int     `json:"in_progress"`
	Pending            int     `json:"pending"`
	Approved           int     `json:"approved"`
	AvgInProgressHours float64 `json:"avg_in_progress_hours"`
}

type QueueThroughput struct {
	AvgDailyRequests    float64 `json:"avg_daily_requests"`
	AvgDailyCompletions float64 `json:"avg_daily_completions"`
	TotalRequests7d     int64   `json:"total_requests_7d"`
	TotalCompletions7d  int64   `json:"total_completions_7d"`
	CompletionRatePct   float64 `json:"completion_rate_pct"`
}

type QueueMetrics struct {
	StatusCounts    map[string]QueueStatusStat `json:"queue_status"`
	StuckRepairs    []StuckRepair              `json:"stuck_repairs"`
	ProcessingTimes ProcessingTimes            `json:"processing_times"`
	TechnicianLoad  []TechnicianLoad           `json:"technician_load"`
	Throughput      QueueThroughput            `json:"throughput"`
}

// TotalDepth is the active queue depth across every status bucket.
func (m QueueMetrics) TotalDepth() int {
	total := 0
	for _, s := range m.StatusCounts {
		total += s.Count
	}
	return total
}

type EndpointResult struct {
	Endpoint       string    `json:"endpoint"`
	Name           string    `json:"name"`
	Method         string    `json:"method"`
	StatusCode     int       `json:"status_code,omitempty"`
	ResponseTimeMs *float64  `json:"response_time_ms,omitempty"`
	Success        bool      `json:"success"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

type EndpointMetrics struct {
	RequestCount          int64      `json:"request_count"`
	ErrorCount            int64      `json:"error_count"`
	ErrorRatePct          float64    `json:"error_rate_pct"`
	AverageResponseTimeMs float64    `json:"average_response_time_ms"`
	LastCheck             *time.Time `json:"last_check,omitempty"`
}

type APISummary struct {
	TotalRequests         int64   `json:"total_requests"`
	TotalErrors           int64   `json:"total_errors"`
	AverageResponseTimeMs float64 `json:"average_response_time_ms"`
	ErrorRatePct          float64 `json:"error_rate_pct"`
}

type APIMetrics struct {
	Endpoints       map[string]EndpointMetrics `json:"endpoints"`
	Summary         APISummary                 `json:"summary"`
	EndpointResults []EndpointResult           `json:"endpoint_results,omitempty"`
}

type PrefixStats struct {
	SizeGB      float64 `json:"size_gb"`
	ObjectCount int64   `json:"object_count"`
}

type BucketSize struct {
	TotalSizeBytes int64                  `json:"total_size_bytes"`
	TotalSizeGB    float64                `json:"total_size_gb"`
	ObjectCount    int64                  `json:"object_count"`
	ByPrefix       map[string]PrefixStats `json:"by_prefix"`
}

type LargeFile struct {
	Key          string    `json:"key"`
	SizeMB       float64   `json:"size_mb"`
	LastModified time.Time `json:"last_modified"`
	StorageClass string    `json:"storage_class"`
}

type CostEstimate struct {
	Storage        float64 `json:"storage"`
	PutRequests    float64 `json:"put_requests"`
	GetRequests    float64 `json:"get_requests"`
	DataTransfer   float64 `json:"data_transfer"`
	TotalEstimated float64 `json:"total_estimated"`
}

type StorageMetrics struct {
	BucketSize     BucketSize   `json:"bucket_size"`
	LargeFiles     []LargeFile  `json:"large_files"`
	EstimatedCosts CostEstimate `json:"estimated_costs"`
}

type UserActivity struct {
	TotalUsers             int     `json:"total_users"`
	ActiveUsers30d         int     `json:"active_users_30d"`
	ActiveToday            int     `json:"active_today"`
	ActiveWeek             int     `json:"active_week"`
	TotalTechnicians       int     `json:"total_technicians"`
	ActiveTechniciansToday int     `json:"active_technicians_today"`
	ActivityRatePct        float64 `json:"activity_rate_pct"`
}

type CustomerActivity struct {
	TotalCustomers        int     `json:"total_customers"`
	ActiveCustomers30d    int     `json:"active_customers_30d"`
	NewCustomersToday     int     `json:"new_customers_today"`
	NewCustomersWeek      int     `json:"new_customers_week"`
	AvgRepairsPerCustomer float64 `json:"avg_repairs_per_customer"`
	EngagementRatePct     float64 `json:"engagement_rate_pct"`
}

type TechnicianPerformance struct {
	TechnicianID       int64      `json:"technician_id"`
	Username           string     `json:"username"`
	LastLogin          *time.Time `json:"last_login,omitempty"`
	TotalRepairs       int        `json:"total_repairs"`
	CompletedRepairs   int        `json:"completed_repairs"`
	RepairsLastWeek    int        `json:"repairs_last_week"`
	AvgCompletionHours float64    `json:"avg_completion_hours"`
	CompletionRatePct  float64    `json:"completion_rate_pct"`
}

type ActivityMetrics struct {
	UserActivity          UserActivity            `json:"user_activity"`
	CustomerActivity      CustomerActivity        `json:"customer_activity"`
	TechnicianPerformance []TechnicianPerformance `json:"technician_performance"`
	InactiveTechnicians   []string                `json:"inactive_technicians,omitempty"`
}
