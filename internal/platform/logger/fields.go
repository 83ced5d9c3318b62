package logger

// ログのフィールド名（全パッケージ共通）
const (
	FieldService    = "service"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldRequestID  = "request_id"
	FieldSessionID  = "session_id"
	FieldCourseCode = "course_code"
	FieldProgramID  = "program_id"
)
