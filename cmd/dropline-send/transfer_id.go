package main

// transferIDCounter allocates transfer_id values as a monotonically
// increasing counter per sender process, starting at 0.
var transferIDCounter uint64

// nextTransferID returns the next transfer_id and advances the counter.
func nextTransferID() uint64 {
	id := transferIDCounter
	transferIDCounter++
	return id
}
