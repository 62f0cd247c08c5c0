package metrics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestClassifyJobError(t *testing.T) {
	require.Equal(t, JobReasonDeadlineExceeded, classifyJobError(context.DeadlineExceeded))
	require.Equal(t, JobReasonDeadlineExceeded, classifyJobError(context.Canceled))

	require.Equal(t, JobReasonDB, classifyJobError(gorm.ErrDuplicatedKey))
	require.Equal(t, JobReasonDB, classifyJobError(sql.ErrConnDone))
	require.Equal(t, JobReasonDB, classifyJobError(fmt.Errorf("insert run: %w", gorm.ErrRecordNotFound)))

	require.Equal(t, JobReasonUnknown, classifyJobError(errors.New("boom")))
	require.Equal(t, JobReasonUnknown, classifyJobError(nil))
}
