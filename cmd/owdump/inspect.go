package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arloliu/objectwire/classreg"
	"github.com/arloliu/objectwire/format"
	"github.com/arloliu/objectwire/internal/pool"
	"github.com/arloliu/objectwire/varint"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the top-level tag of an encoded stream and what follows it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			return inspectStream(cmd, data)
		},
	}
}

// inspectStream walks one top-level value's tag, printing what it can
// determine generically. Past the outer tag, field layout is schema
// dependent (it lives in the Go type's class descriptor, not on the
// wire), so this never recurses into a TYPED or OBJECT body, and it
// cannot resolve a HANDLE without replaying a full decode against the
// original type — it reports what it reads and stops there, same as the
// "stops at the first unresolvable handle" behavior in any partial
// reader.
func inspectStream(cmd *cobra.Command, data []byte) error {
	buf := pool.NewByteBuffer(len(data))
	buf.MustWrite(data)

	out := cmd.OutOrStdout()

	tagByte, ok := buf.ReadByte()
	if !ok {
		fmt.Fprintln(out, "(empty stream)")

		return nil
	}
	tag := format.Tag(tagByte)
	fmt.Fprintf(out, "[0] %s", tag)

	switch tag {
	case format.TagNull:
		fmt.Fprintln(out)

	case format.TagHandle, format.TagCopyHandle:
		ref, err := varint.ReadCInt(buf)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, " ref=%d (unresolvable without a live object registry)\n", ref)

	case format.TagBigInt:
		v, err := varint.ReadCInt(buf)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, " value=%d\n", v)

	case format.TagBigLong:
		v, err := varint.ReadCLong(buf)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, " value=%d\n", v)

	case format.TagBigBooleanTrue:
		fmt.Fprintln(out, " value=true")

	case format.TagBigBooleanFalse:
		fmt.Fprintln(out, " value=false")

	case format.TagOneOf:
		idx, ok := buf.ReadByte()
		if !ok {
			return fmt.Errorf("reading ONE_OF index: unexpected end of stream")
		}
		fmt.Fprintf(out, " index=%d\n", idx)

	case format.TagObject:
		reg := classreg.New()
		name, code, _, err := reg.Decode(buf)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, " class=%q code=%d (body layout is schema dependent, stopping here)\n", name, code)

	case format.TagTyped:
		fmt.Fprintln(out, " (declared type resolves from field/hint context only; body layout is schema dependent, stopping here)")

	case format.TagArray:
		reg := classreg.New()
		name, _, _, err := reg.Decode(buf)
		if err != nil {
			return err
		}
		n, err := varint.ReadCInt(buf)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, " class=%q length=%d (element bodies depend on strategy flags, stopping here)\n", name, n)

	case format.TagEnum:
		reg := classreg.New()
		name, _, _, err := reg.Decode(buf)
		if err != nil {
			return err
		}
		ord, err := varint.ReadCInt(buf)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, " class=%q ordinal=%d\n", name, ord)

	default:
		if tag >= format.TagPredictionBase {
			fmt.Fprintf(out, " prediction code=%d (needs field context to resolve a class, stopping here)\n", int(tag)-int(format.TagPredictionBase)+1)
		} else {
			fmt.Fprintln(out, " (unknown tag)")
		}
	}

	fmt.Fprintf(out, "%d of %d bytes consumed\n", buf.Pos(), len(data))

	return nil
}
