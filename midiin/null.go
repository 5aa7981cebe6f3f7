//go:build !cgo

package midiin

// Context is empty without cgo: there is no driver to open ports with.
type Context struct{}

func NewContext() *Context { return &Context{} }

func (c *Context) Inputs() []string { return nil }

func (c *Context) OpenByPrefix(prefix string, h *Handler) (string, error) {
	return "", ErrNoDriver
}

func (c *Context) Close() {}
