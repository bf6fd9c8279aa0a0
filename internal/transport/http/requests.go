package http

type createReportRequest struct {
	Login     string   `json:"login" validate:"required,github_login"`
	RepoLinks []string `json:"repoLinks" validate:"required,min=1,max=50,dive,required"`
	StartDate string   `json:"startDate" validate:"required,date"`
	EndDate   string   `json:"endDate" validate:"required,date"`
}

type createReportResponse struct {
	ProcessID string `json:"process_id"`
	Message   string `json:"message"`
}

type reportStatusResponse struct {
	ProcessID string `json:"process_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	ReportID  *int64 `json:"report_id"`
}

type errorCode string

const (
	codeInvalidRequest errorCode = "INVALID_REQUEST"
	codeValidation     errorCode = "VALIDATION_ERROR"
	codeNotFound       errorCode = "NOT_FOUND"
	codeInternal       errorCode = "INTERNAL_ERROR"
)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}
