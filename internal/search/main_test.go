// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/httputil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))
}

// retryBaseDelayForTest shortens the retry backoff and returns a restore func.
func retryBaseDelayForTest(d time.Duration) func() {
	old := httputil.RetryBaseDelay
	httputil.RetryBaseDelay = d
	return func() { httputil.RetryBaseDelay = old }
}
