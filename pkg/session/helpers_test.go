package session_test

import "github.com/aretw0/stacktester/internal/testutils"

var newTrackingDB = testutils.NewTrackingDB
