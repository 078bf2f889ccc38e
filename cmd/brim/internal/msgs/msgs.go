// Package msgs defines the bubbletea messages exchanged between the brim
// frontend packages.
package msgs

// DrainMsg asks the model to run the work queued on the owner loop.
type DrainMsg struct{}

// NoticeExpiredMsg clears the notice with the given sequence number, unless
// a newer one replaced it.
type NoticeExpiredMsg struct {
	Seq int
}
