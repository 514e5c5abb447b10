package transfer

import "fmt"

// AdmitWrite reports whether it is safe to write more chunk data under
// root: free space on root must be at least max(minReserve,
// remainingExpected). remaining is the number of bytes still expected
// for the in-flight file.
func AdmitWrite(root string, minReserve, remaining int64) (bool, error) {
	free, err := availableBytes(root)
	if err != nil {
		return false, fmt.Errorf("transfer: statting free space on %s: %w", root, err)
	}

	required := minReserve
	if remaining > required {
		required = remaining
	}

	return int64(free) >= required, nil
}
