package v1

import (
	"strings"
	"testing"
	"time"
)

// TestBuildExportContentDisposition 下载头包含 ASCII 回退名与 UTF-8 扩展名
func TestBuildExportContentDisposition(t *testing.T) {
	got := buildExportContentDisposition(2024)

	if !strings.HasPrefix(got, "attachment;") {
		t.Errorf("disposition = %q, want attachment", got)
	}
	if !strings.Contains(got, `filename="energy-report-2024.xlsx"`) {
		t.Errorf("missing ascii fallback: %q", got)
	}
	if !strings.Contains(got, "filename*=UTF-8''") {
		t.Errorf("missing utf-8 extension: %q", got)
	}
	if strings.Contains(got, "年度") {
		t.Errorf("utf-8 name must be percent-encoded: %q", got)
	}
}

// TestExportDownloadStore token 一次性消费与过期清理
func TestExportDownloadStore(t *testing.T) {
	s := newExportDownloadStore()

	token := s.put("/tmp/report.xlsx", 2024, time.Minute)
	if token == "" {
		t.Fatal("empty token")
	}

	item, ok := s.get(token)
	if !ok || item.filePath != "/tmp/report.xlsx" || item.year != 2024 {
		t.Fatalf("get = %+v, %v", item, ok)
	}

	s.delete(token)
	if _, ok := s.get(token); ok {
		t.Error("deleted token should not resolve")
	}

	expired := s.put("/tmp/old.xlsx", 2023, -time.Second)
	if _, ok := s.get(expired); ok {
		t.Error("expired token should not resolve")
	}
}
