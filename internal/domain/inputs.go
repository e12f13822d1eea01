package domain

// InitializeInput carries the base network as typed by the caller.
type InitializeInput struct {
	Network string
	Prefix  string
}
