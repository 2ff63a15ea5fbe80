// Package api defines the stable request/result schema exchanged with the
// job runner (§6). Keep field names and JSON tags stable; add new fields
// only with ",omitempty".
package api

// SiRNARequest is a single named guide in an analysis batch.
type SiRNARequest struct {
	Name     string `json:"name"`
	Sequence string `json:"sequence"`
}

// AnalysisRequest is the orchestrator's input (§6).
type AnalysisRequest struct {
	SiRNAs             []SiRNARequest `json:"sirnas"`
	MaxSeedMismatches  int            `json:"max_seed_mismatches"`
	AllowWobble        bool           `json:"allow_wobble"`
	EnergyThreshold    float64        `json:"energy_threshold"`
	IncludeStructure   bool           `json:"include_structure"`
	Conservation       map[string]float64 `json:"conservation,omitempty"` // optional transcript_id -> score, §9(c)
	RestrictToUTR3     bool           `json:"restrict_to_utr3,omitempty"` // §9(b) Open Question decision
}

// DefaultRequest fills in the request defaults named in §6.
func DefaultRequest() AnalysisRequest {
	return AnalysisRequest{
		MaxSeedMismatches: 1,
		AllowWobble:       true,
		EnergyThreshold:   -10.0,
		IncludeStructure:  true,
	}
}

// OffTarget is one ranked off-target record (§3, §6).
type OffTarget struct {
	TranscriptID           string  `json:"transcript_id"`
	GeneSymbol             string  `json:"gene_symbol"`
	Position               int     `json:"position"`
	DeltaG                 float64 `json:"delta_g"`
	RiskScore              float64 `json:"risk_score"`
	Classification         string  `json:"classification"`
	SeedMatches            int     `json:"seed_matches"`
	Mismatches             int     `json:"mismatches"`
	Wobbles                int     `json:"wobbles"`
	AUContent              float64 `json:"au_content"`
	StructureAccessibility float64 `json:"structure_accessibility"`
	AlignmentCoverage      float64 `json:"alignment_coverage"`
	Alignment              string  `json:"alignment,omitempty"`
}

// AnalysisResult is the per-guide result document (§3, §6).
type AnalysisResult struct {
	RunID               string      `json:"run_id"`
	IndexGeneration     string      `json:"index_generation"`
	SiRNAName           string      `json:"sirna_name"`
	Guide               string      `json:"guide"`
	Parameters          AnalysisRequest `json:"parameters"`
	TotalOffTargets     int         `json:"total_offtargets"`
	HighRiskCount       int         `json:"high_risk_count"`
	ModerateRiskCount   int         `json:"moderate_risk_count"`
	LowRiskCount        int         `json:"low_risk_count"`
	MedianDeltaG        float64     `json:"median_delta_g,omitempty"`
	OffTargets          []OffTarget `json:"offtargets"`
}

// JobStatus is the engine-side analysis state machine (§4.G, §7).
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobState tracks one analysis' progress, mirroring the original
// implementation's AnalysisJob record (dropped by the distillation,
// restored here as a plain Go type the caller can serialize — persisting
// it is the job runner's responsibility, not this engine's).
type JobState struct {
	JobID       string    `json:"job_id"`
	SiRNAName   string    `json:"sirna_name"`
	Sequence    string    `json:"sirna_sequence"`
	Status      JobStatus `json:"status"`
	FailureCode string    `json:"failure_code,omitempty"`
	Result      *AnalysisResult `json:"result,omitempty"`
}
