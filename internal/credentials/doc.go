// Package credentials holds station credentials, their validation and the
// stores the Wi-Fi manager loads them from.
//
// SSIDs are limited to 32 bytes and passwords to 64 bytes (IEEE 802.11).
// Validation failures are *Error values of type ErrTypeValidation so callers
// can tell a bad request apart from a storage problem:
//
//	if err := credentials.Validate(c); credentials.IsValidationError(err) {
//	    // reject before touching the radio
//	}
//
// FileStore persists a single station entry as YAML with atomic writes;
// MemoryStore is an in-process implementation for tests and diskless runs.
package credentials
