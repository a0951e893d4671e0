package observability

import (
	"errors"
	"testing"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
)

func TestImportMetrics(t *testing.T) {
	m := NewImportMetrics(prometheus.NewPedanticRegistry())

	m.UploadProcessed("extracted")
	m.UploadProcessed("extracted")
	m.UploadProcessed("wrong_password")
	m.TransactionClassified("keyword", common.ConfidenceHigh)
	m.TransactionClassified("", common.ConfidenceLow)
	m.ImportCommitted(3, 1)
	m.ImportCommitted(2, 0)
	m.ActiveSessions(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.uploads.WithLabelValues("extracted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("wrong_password")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.classified.WithLabelValues("keyword", "high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.classified.WithLabelValues("none", "low")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.rows.WithLabelValues("imported")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rows.WithLabelValues("skipped")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.activeSessions))
}

func TestCodeLabel(t *testing.T) {
	assert.Equal(t, "ok", codeLabel(nil))
	assert.Equal(t, "not_found", codeLabel(connect.NewError(connect.CodeNotFound, errors.New("x"))))
	assert.Equal(t, "unknown", codeLabel(errors.New("plain")))
}
