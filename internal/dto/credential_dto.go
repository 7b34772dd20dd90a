package dto

import "time"

// CredentialResponse describes an issued token without revealing the password.
type CredentialResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CredentialStatusResponse reports whether a token can still be redeemed.
type CredentialStatusResponse struct {
	Valid       bool      `json:"valid"`
	Expired     bool      `json:"expired"`
	Used        bool      `json:"used"`
	ExpiresAt   time.Time `json:"expires_at"`
	TeacherName string    `json:"teacher_name"`
}

// RedeemedCredential is the one-time plaintext view of a credential.
type RedeemedCredential struct {
	TeacherName string `json:"teacher_name"`
	NIF         string `json:"nif"`
	Username    string `json:"username"`
	Password    string `json:"password"`
}

// RowIssue reports a problem found on one spreadsheet row (1-based, header included).
type RowIssue struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult summarises a spreadsheet import.
type ImportResult struct {
	SuccessCount int        `json:"success_count"`
	Errors       []RowIssue `json:"errors"`
	Warnings     []RowIssue `json:"warnings"`
}

// DashboardResponse aggregates coordination totals for the current semester.
type DashboardResponse struct {
	Semester                  *SemesterResponse `json:"semester"`
	Teachers                  int64             `json:"teachers"`
	Courses                   int64             `json:"courses"`
	Evaluations               int64             `json:"evaluations"`
	CompletedEvaluations      int64             `json:"completed_evaluations"`
	PendingSchedules          int64             `json:"pending_schedules"`
	AveragePlanningPercentage float64           `json:"average_planning_percentage"`
	AverageClassPercentage    float64           `json:"average_class_percentage"`
	GeneratedAt               time.Time         `json:"generated_at"`
}
