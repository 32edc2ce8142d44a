package defs

import "time"

// Protocol constants
const (
	MagicNumber uint16 = 0xEDCA

	// Message types
	MsgJoin     byte = 0x01
	MsgJoinAck  byte = 0x02
	MsgSpec     byte = 0x03
	MsgTask     byte = 0x04
	MsgTaskDone byte = 0x05
	MsgLeave    byte = 0x06
	MsgError    byte = 0x07

	// Configuration constants
	JoinTimeout          = 30 * time.Second
	ConnectionRetryDelay = 1 * time.Second
)

// Task codes carried by MsgTask. Every pool member receives the same code in
// the same round. Codes outside the recognized set are a no-op round for the
// worker, so newer controllers can keep talking to older workers.
const (
	TaskShutdown int = 1
	TaskSolve    int = 2
	TaskSimulate int = 3 // reserved
	TaskEvaluate int = 4 // reserved
)
