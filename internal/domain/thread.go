package domain

// ThreadIconColor is the accent color of every created thread (0x6FB9F0)
const ThreadIconColor = 7322096

// Binding is one user↔thread relation stored as a forward and a reverse entry
type Binding struct {
	UserID   int64
	ThreadID int
}
