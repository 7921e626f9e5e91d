package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_WrapAndIs(t *testing.T) {
	err := SolverFailure(context.DeadlineExceeded, "分支定界")
	wrapped := fmt.Errorf("optimize: %w", err)

	if !Is(wrapped, CodeSolverError) {
		t.Error("应识别为求解器错误")
	}
	if Is(wrapped, CodeNoFeasibleSolution) {
		t.Error("求解器错误不能与无可行解混淆")
	}
	if GetHTTPStatus(wrapped) != http.StatusInternalServerError {
		t.Errorf("HTTP状态 = %d", GetHTTPStatus(wrapped))
	}
}

func TestCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeMissingData, http.StatusBadRequest},
		{CodeInvalidLine, http.StatusBadRequest},
		{CodeEditRejected, http.StatusConflict},
		{CodeNoFeasibleSolution, http.StatusUnprocessableEntity},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeSolverError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := New(tt.code, "x").HTTPStatus; got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMissingData_Fields(t *testing.T) {
	err := MissingData("ABC*", "line")
	if err.Fields["target"] != "ABC*" || err.Fields["field"] != "line" {
		t.Errorf("字段不完整: %v", err.Fields)
	}
}

func TestFrom(t *testing.T) {
	plain := fmt.Errorf("boom")
	if From(plain).Code != CodeInternal {
		t.Error("普通错误应转换为内部错误")
	}
	app := New(CodeNotFound, "x")
	if From(app) != app {
		t.Error("AppError 应原样返回")
	}
}

func TestValidationErrors(t *testing.T) {
	ve := &ValidationErrors{}
	if ve.HasErrors() {
		t.Fatal("初始不应有错误")
	}
	ve.Add("demand", "不能为空")
	ve.Add("lines", "不能为空")

	appErr := ve.ToAppError()
	if appErr.Code != CodeValidationFail {
		t.Errorf("code = %s", appErr.Code)
	}
	if len(appErr.Fields) != 2 {
		t.Errorf("fields = %v", appErr.Fields)
	}
}
