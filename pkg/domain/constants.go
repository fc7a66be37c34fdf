package domain

// Sentinel stack values pushed by the tester.
var (
	// ResultNotPresent stands for an asynchronous result that completed without a value.
	ResultNotPresent = []byte("RESULT_NOT_PRESENT")

	// WaitedForEmpty is pushed once a WAIT_EMPTY instruction observes an empty range.
	WaitedForEmpty = []byte("WAITED_FOR_EMPTY")
)

// SystemKeyPrefix marks the start of the reserved key space.
const SystemKeyPrefix = 0xff
