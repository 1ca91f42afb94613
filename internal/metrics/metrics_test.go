package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveStage(t *testing.T) {
	before := testutil.ToFloat64(StageRunsTotal.WithLabelValues("scrape", "failure"))

	ObserveStage("scrape", false, 250*time.Millisecond)

	after := testutil.ToFloat64(StageRunsTotal.WithLabelValues("scrape", "failure"))
	assert.Equal(t, before+1, after)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(StageDuration), 1)
}

func TestObserveJob(t *testing.T) {
	before := testutil.ToFloat64(JobsProcessedTotal.WithLabelValues("submit_blog_post", "success"))

	ObserveJob("submit_blog_post", true)

	assert.Equal(t, before+1, testutil.ToFloat64(JobsProcessedTotal.WithLabelValues("submit_blog_post", "success")))
}

func TestObserveSubmission(t *testing.T) {
	before := testutil.ToFloat64(SubmissionsTotal.WithLabelValues("rejected"))

	ObserveSubmission("rejected")

	assert.Equal(t, before+1, testutil.ToFloat64(SubmissionsTotal.WithLabelValues("rejected")))
}
