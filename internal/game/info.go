package game

// Info is the durable record for one currently hosted game. The scanner
// owns the live copies; everything downstream receives value snapshots.
type Info struct {
	// ID is process-unique and monotonically increasing. It is assigned
	// once when the game is first observed and never reused, so message
	// tracking keyed by it survives account reuse.
	ID int64

	// Account is the hosting bot account, the stable key in the roster.
	Account string

	Category Category

	Name     string
	PrevName string

	Players     string
	PrevPlayers string
}
