package common

//go:generate go run github.com/dmarkham/enumer -json -type State -trimprefix State

// State of a download task
type State int

const (
	StatePENDING State = iota
	StateRESOLVING
	StateONLINE
	StateARCHIVED
	StateDOWNLOADING
	StateVERIFYING
	StateRETRY
	StateCOMPLETE
	StateFAILED
)

// Terminal returns whether the task reached a final state
func (s State) Terminal() bool {
	return s == StateCOMPLETE || s == StateFAILED
}
