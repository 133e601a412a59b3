package linker

import (
	"debug/elf"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// ReadInputFiles maps and validates the module and the host. Both are
// checked before any layout work starts.
func ReadInputFiles(ctx *Context) error {
	if len(ctx.Arg.Inputs) < 2 {
		return errors.Errorf("expected module and host inputs, got %d file(s)", len(ctx.Arg.Inputs))
	}
	for _, extra := range ctx.Arg.Inputs[2:] {
		level.Warn(ctx.Logger).Log("msg", "ignoring extra input", "file", extra)
	}

	var err error
	if ctx.Module, err = OpenImage(ctx.Arg.Inputs[0]); err != nil {
		return err
	}
	if ctx.Host, err = OpenImage(ctx.Arg.Inputs[1]); err != nil {
		return err
	}
	return CheckCompatibility(ctx.Host, ctx.Module)
}

// CheckCompatibility rejects a module built for another machine than the
// host.
func CheckCompatibility(host, module *Image) error {
	hm, mm := host.Ehdr().Machine, module.Ehdr().Machine
	if hm != mm {
		return invalidImage(module.Name(), "machine %s does not match host machine %s",
			elf.Machine(mm), elf.Machine(hm))
	}
	return nil
}

func ComputeLayout(ctx *Context) error {
	layout, err := NewLayout(ctx.Host, ctx.Module, ctx.Logger)
	if err != nil {
		return err
	}
	ctx.Layout = layout
	return nil
}

// Compose builds the output image in ctx.Buf from images already loaded
// into ctx.
func Compose(ctx *Context) error {
	level.Debug(ctx.Logger).Log("msg", "composing",
		"module", ctx.Module.Name(), "machine", elf.Machine(ctx.Module.Ehdr().Machine),
		"host", ctx.Host.Name(), "host_phnum", ctx.Host.Ehdr().PhNum)

	if err := ComputeLayout(ctx); err != nil {
		return err
	}
	if err := CreateOutputBuffer(ctx); err != nil {
		return err
	}
	if err := RewritePhdrs(ctx); err != nil {
		ctx.Buf = nil
		return err
	}
	if err := CopyContents(ctx); err != nil {
		ctx.Buf = nil
		return err
	}
	return nil
}

// Link reads the inputs named in ctx.Arg, composes them and writes the
// result to ctx.Arg.Output. The output is written only once it is complete.
func Link(ctx *Context, fs afero.Fs) error {
	if ctx.Arg.Output == "" {
		return errors.New("option --output: argument missing")
	}
	if err := ReadInputFiles(ctx); err != nil {
		return err
	}
	if err := Compose(ctx); err != nil {
		return err
	}
	return Emit(fs, ctx.Arg.Output, ctx.Buf)
}
