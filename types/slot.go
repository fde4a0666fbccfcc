package types

type SlotStatus uint8

const (
	SlotFree              SlotStatus = 0
	SlotUsed              SlotStatus = 1
	SlotRequestInProgress SlotStatus = 2
	SlotDisputed          SlotStatus = 3
)

func (s SlotStatus) String() string {
	switch s {
	case SlotFree:
		return "free"
	case SlotUsed:
		return "used"
	case SlotRequestInProgress:
		return "request_in_progress"
	case SlotDisputed:
		return "disputed"
	}
	return "unknown"
}

type RequestKind uint8

const (
	RequestNone   RequestKind = 0
	RequestAdd    RequestKind = 1
	RequestRemove RequestKind = 2
	RequestEdit   RequestKind = 3
)

func (k RequestKind) String() string {
	switch k {
	case RequestAdd:
		return "add"
	case RequestRemove:
		return "remove"
	case RequestEdit:
		return "edit"
	}
	return "none"
}

// Ruling values follow the arbitrator convention: 0 means the arbitrator
// refused to rule, the remaining values index the dispute choices.
type Ruling uint64

const (
	RulingRefused    Ruling = 0
	RulingRequester  Ruling = 1
	RulingChallenger Ruling = 2
)

// NumberOfChoices is passed to the arbitrator when a dispute is raised.
const NumberOfChoices = 2

type Side uint8

const (
	SideNone       Side = 0
	SideRequester  Side = 1
	SideChallenger Side = 2
)

func (s Side) Valid() bool {
	return s == SideRequester || s == SideChallenger
}

func (s Side) Opposite() Side {
	switch s {
	case SideRequester:
		return SideChallenger
	case SideChallenger:
		return SideRequester
	}
	return SideNone
}
