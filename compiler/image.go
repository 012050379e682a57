package compiler

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/henlo/compiler/asm/henlo"
	"github.com/slowlang/henlo/compiler/back"
)

type (
	// Image links functions into one code blob loaded at Base.
	// It is an ObjectWriter.
	Image struct {
		Base uint16

		// Syms resolves relocation symbol ids.
		Syms []string

		code   []byte
		addrs  map[string]uint16
		relocs []back.Reloc
		funcs  []ImageFunc
	}

	ImageFunc struct {
		Name string
		Off  int

		back.Object
	}
)

var ErrUndefined = errors.New("undefined symbol")

func NewImage(base uint16, syms []string) *Image {
	return &Image{
		Base:  base,
		Syms:  syms,
		addrs: map[string]uint16{},
	}
}

func (im *Image) WriteFunc(name string, obj back.Object) error {
	if _, ok := im.addrs[name]; ok {
		return errors.New("func %v: already written", name)
	}

	off := len(im.code)

	if end := int(im.Base) + off + len(obj.Code); end > 0x10000 {
		return errors.New("func %v: image ends at %#x: out of address space", name, end)
	}

	im.code = append(im.code, obj.Code...)
	im.addrs[name] = im.Base + uint16(off)

	for _, r := range obj.Relocs {
		r.Off += off
		im.relocs = append(im.relocs, r)
	}

	im.funcs = append(im.funcs, ImageFunc{Name: name, Off: off, Object: obj})

	return nil
}

// Define gives an address to a symbol not defined by a function.
func (im *Image) Define(name string, addr uint16) {
	im.addrs[name] = addr
}

func (im *Image) Addr(name string) (uint16, bool) {
	a, ok := im.addrs[name]
	return a, ok
}

func (im *Image) Funcs() []ImageFunc { return im.funcs }

// Link fills every relocation placeholder with the load of the symbol address.
func (im *Image) Link(ctx context.Context) (code []byte, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "link", "base", im.Base, "size", len(im.code), "relocs", len(im.relocs))
	defer tr.Finish("err", &err)

	var p [henlo.WideLoadLen]byte

	for _, r := range im.relocs {
		if r.Sym < 0 || r.Sym >= int64(len(im.Syms)) {
			return nil, errors.New("reloc at %#x: bad symbol id %d", r.Off, r.Sym)
		}

		name := im.Syms[r.Sym]

		addr, ok := im.addrs[name]
		if !ok {
			return nil, errors.Wrap(ErrUndefined, "%v (reloc at %#x)", name, r.Off)
		}

		if r.Flags&back.RelocRelative != 0 {
			return nil, errors.New("reloc at %#x: relative relocations are not supported", r.Off)
		}

		if r.Off < 0 || r.Off+len(p) > len(im.code) {
			return nil, errors.New("reloc at %#x: out of code", r.Off)
		}

		copy(im.code[r.Off:], henlo.AppendWideLoad(p[:0], henlo.ACC, addr))

		tr.V("link").Printw("reloc", "sym", name, "addr", addr, "off", r.Off)
	}

	return im.code, nil
}
