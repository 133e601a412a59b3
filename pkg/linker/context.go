package linker

import (
	"github.com/go-kit/log"
	"github.com/xyproto/env/v2"
)

type ContextArg struct {
	Output  string
	Verbose bool

	// Inputs holds the module path followed by the host path. Anything
	// after the second entry is ignored.
	Inputs []string
}

type Context struct {
	Arg    ContextArg
	Logger log.Logger

	Module *Image
	Host   *Image

	Layout *Layout

	// Buf holds the composed image. After CopyContents it is truncated to
	// the true output length.
	Buf []byte
}

func NewContext() *Context {
	return &Context{
		Arg: ContextArg{
			Output:  env.Str("SBOXLD_OUTPUT"),
			Verbose: env.Bool("SBOXLD_VERBOSE"),
		},
		Logger: log.NewNopLogger(),
	}
}

// Close releases the input mappings.
func (ctx *Context) Close() error {
	var firstErr error
	for _, img := range []*Image{ctx.Module, ctx.Host} {
		if img == nil {
			continue
		}
		if err := img.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	ctx.Module, ctx.Host = nil, nil
	return firstErr
}
