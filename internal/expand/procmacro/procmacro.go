// Package procmacro implements the proc-macro child-process protocol:
// spawn the compiled macro executable, exchange a readiness byte, then
// stream class-tagged tokens over stdin/stdout until an empty Symbol
// terminates each direction.
//
// Structured around an exec.Command + cmd.Start/cmd.Wait +
// timeout-via-goroutine pattern, generalized from a one-shot batch run to
// a long-lived bidirectional pipe pair. Locating the compiled macro
// executable on disk uses github.com/bmatcuk/doublestar/v4; the token
// exchange goroutine and its timeout watchdog are coordinated with
// golang.org/x/sync/errgroup.
package procmacro

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/rustbootstrap/mrustc-core/internal/errors"
	"github.com/rustbootstrap/mrustc-core/internal/rast"
)

// classByte values for the wire protocol.
const (
	classSymbol     byte = 0
	classIdent      byte = 1
	classLifetime   byte = 2
	classString     byte = 3
	classByteString byte = 4
	classChar       byte = 5
	classUInt       byte = 6
	classSInt       byte = 7
	classFloat      byte = 8
)

// LocateExecutable finds the compiled macro executable for crateName under
// root, searching the same build-output layout doublestar/v4 is used to
// glob elsewhere in this module's domain stack.
func LocateExecutable(root, crateName string) (string, error) {
	pattern := filepath.Join(root, "**", crateName+"-procmacro*")
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return "", fmt.Errorf("%s: globbing for proc-macro executable: %w", errors.EXP008, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%s: no compiled proc-macro executable found for crate %q", errors.EXP008, crateName)
	}
	return matches[0], nil
}

// Invocation is one running proc-macro child, spawned by Spawn.
type Invocation struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	dumpPrefix string
	seq    int
}

// Spawn starts the proc-macro executable at path with exportedName as
// argv[1], wiring a bidirectional pipe pair. dumpPrefix,
// if non-empty, enables MRUSTC_DUMP_PROCMACRO-style per-invocation dumping.
func Spawn(ctx context.Context, path, exportedName, dumpPrefix string, seq int) (*Invocation, error) {
	cmd := exec.CommandContext(ctx, path, exportedName)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%s: starting proc-macro child: %w", errors.EXP008, err)
	}
	return &Invocation{cmd: cmd, stdin: stdin, stdout: bufio.NewReader(stdout), dumpPrefix: dumpPrefix, seq: seq}, nil
}

// ReadReadiness reads the 1-byte readiness flag (step 1). A
// non-zero flag means the child is requesting a compile abort.
func (inv *Invocation) ReadReadiness() error {
	var b [1]byte
	if _, err := io.ReadFull(inv.stdout, b[:]); err != nil {
		return fmt.Errorf("%s: reading readiness byte: %w", errors.EXP008, err)
	}
	if b[0] != 0 {
		return fmt.Errorf("%s: proc-macro child requested compile abort", errors.EXP007)
	}
	return nil
}

// Send streams tokens to the child, terminated by an empty Symbol (// step 4).
func (inv *Invocation) Send(tokens rast.TokenStream) error {
	var dump []byte
	for _, t := range tokens {
		b, err := encodeToken(t)
		if err != nil {
			return err
		}
		if _, err := inv.stdin.Write(b); err != nil {
			return fmt.Errorf("%s: writing to proc-macro child: %w", errors.EXP008, err)
		}
		if inv.dumpPrefix != "" {
			dump = append(dump, b...)
		}
	}
	terminator := encodeEmptySymbol()
	if _, err := inv.stdin.Write(terminator); err != nil {
		return fmt.Errorf("%s: writing terminator to proc-macro child: %w", errors.EXP008, err)
	}
	if inv.dumpPrefix != "" {
		dump = append(dump, terminator...)
		_ = os.WriteFile(fmt.Sprintf("%s-%d-out.bin", inv.dumpPrefix, inv.seq), dump, 0o644)
	}
	return nil
}

// Recv reads tokens back until an empty Symbol terminator (step 3).
func (inv *Invocation) Recv() (rast.TokenStream, error) {
	var out rast.TokenStream
	var dump []byte
	for {
		raw, tok, err := decodeToken(inv.stdout)
		if err != nil {
			return nil, fmt.Errorf("%s: reading from proc-macro child: %w", errors.EXP008, err)
		}
		dump = append(dump, raw...)
		if tok.IsEmptySymbol() {
			break
		}
		out = append(out, tok)
	}
	if inv.dumpPrefix != "" {
		_ = os.WriteFile(fmt.Sprintf("%s-%d-res.bin", inv.dumpPrefix, inv.seq), dump, 0o644)
	}
	return out, nil
}

// Close closes stdin (opportunistically signalling SIGPIPE, ) and
// waits for the child to exit.
func (inv *Invocation) Close() error {
	_ = inv.stdin.Close()
	return inv.cmd.Wait()
}

// Run drives one full request/response exchange with a timeout, using the
// exec.Command + cmd.Start/cmd.Wait + timeout-via-goroutine pattern
// generalized to the proc-macro request/response shape instead of a batch
// run with captured stdout.
func Run(ctx context.Context, path, exportedName, dumpPrefix string, seq int, input rast.TokenStream, timeout time.Duration) (rast.TokenStream, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	inv, err := Spawn(ctx, path, exportedName, dumpPrefix, seq)
	if err != nil {
		return nil, err
	}

	var result rast.TokenStream
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := inv.ReadReadiness(); err != nil {
			return err
		}
		if err := inv.Send(input); err != nil {
			return err
		}
		out, err := inv.Recv()
		if err != nil {
			return err
		}
		result = out
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if gctx.Err() == context.DeadlineExceeded {
			_ = inv.cmd.Process.Kill()
		}
		return nil
	})

	runErr := g.Wait()
	closeErr := inv.Close()
	if runErr != nil {
		return nil, runErr
	}
	if closeErr != nil {
		return nil, fmt.Errorf("%s: proc-macro child exited with error: %w", errors.EXP008, closeErr)
	}
	return result, nil
}

func putVarint128(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

func readVarint128(r io.Reader) (uint64, error) {
	var result uint64
	var shift uint
	for {
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		result |= uint64(b[0]&0x7f) << shift
		if b[0]&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

func encodeToken(t rast.Token) ([]byte, error) {
	switch t.Class {
	case rast.TokSymbol, rast.TokIdent, rast.TokLifetime, rast.TokString, rast.TokByteString:
		class := classForText(t.Class)
		body := []byte(t.Text)
		out := []byte{class}
		out = append(out, putVarint128(uint64(len(body)))...)
		out = append(out, body...)
		return out, nil
	case rast.TokChar:
		out := []byte{classChar}
		out = append(out, putVarint128(t.IntValue)...)
		return out, nil
	case rast.TokUInt:
		out := []byte{classUInt, t.BitSize}
		out = append(out, putVarint128(t.IntValue)...)
		return out, nil
	case rast.TokSInt:
		out := []byte{classSInt, t.BitSize}
		out = append(out, putVarint128(zigzagEncode(int64(t.IntValue)))...)
		return out, nil
	case rast.TokFloat:
		out := []byte{classFloat, t.BitSize}
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(t.FloatValue))
		out = append(out, buf[:]...)
		return out, nil
	default:
		return nil, fmt.Errorf("%s: token class %v has no wire encoding", errors.EXP008, t.Class)
	}
}

func encodeEmptySymbol() []byte {
	return []byte{classSymbol, 0}
}

func classForText(c rast.TokenClass) byte {
	switch c {
	case rast.TokSymbol:
		return classSymbol
	case rast.TokIdent:
		return classIdent
	case rast.TokLifetime:
		return classLifetime
	case rast.TokString:
		return classString
	case rast.TokByteString:
		return classByteString
	default:
		return classSymbol
	}
}

func decodeToken(r io.Reader) ([]byte, rast.Token, error) {
	var classBuf [1]byte
	if _, err := io.ReadFull(r, classBuf[:]); err != nil {
		return nil, rast.Token{}, err
	}
	var raw []byte
	raw = append(raw, classBuf[0])

	switch classBuf[0] {
	case classSymbol, classIdent, classLifetime, classString, classByteString:
		n, err := readVarint128(r)
		if err != nil {
			return nil, rast.Token{}, err
		}
		raw = append(raw, putVarint128(n)...)
		body := make([]byte, n)
		if n > 0 {
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, rast.Token{}, err
			}
		}
		raw = append(raw, body...)
		return raw, rast.Token{Class: textClassFor(classBuf[0]), Text: string(body)}, nil
	case classChar:
		v, err := readVarint128(r)
		if err != nil {
			return nil, rast.Token{}, err
		}
		raw = append(raw, putVarint128(v)...)
		return raw, rast.Token{Class: rast.TokChar, IntValue: v}, nil
	case classUInt, classSInt:
		var sizeBuf [1]byte
		if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
			return nil, rast.Token{}, err
		}
		raw = append(raw, sizeBuf[0])
		v, err := readVarint128(r)
		if err != nil {
			return nil, rast.Token{}, err
		}
		raw = append(raw, putVarint128(v)...)
		if classBuf[0] == classUInt {
			return raw, rast.Token{Class: rast.TokUInt, BitSize: sizeBuf[0], IntValue: v}, nil
		}
		signed := zigzagDecode(v)
		return raw, rast.Token{Class: rast.TokSInt, BitSize: sizeBuf[0], IntValue: uint64(signed), Signed: v&1 == 1}, nil
	case classFloat:
		var sizeBuf [1]byte
		if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
			return nil, rast.Token{}, err
		}
		raw = append(raw, sizeBuf[0])
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, rast.Token{}, err
		}
		raw = append(raw, buf[:]...)
		bits := binary.LittleEndian.Uint64(buf[:])
		return raw, rast.Token{Class: rast.TokFloat, BitSize: sizeBuf[0], FloatValue: math.Float64frombits(bits)}, nil
	default:
		return nil, rast.Token{}, fmt.Errorf("%s: unrecognized wire class byte %d", errors.EXP008, classBuf[0])
	}
}

// zigzagEncode maps signed onto the non-negative integers via `v << 1` with
// the low bit carrying the sign, using an arithmetic right shift of the
// sign bit across all 64 positions rather than a sign multiply so the
// encoding round-trips correctly at math.MinInt64.
func zigzagEncode(signed int64) uint64 {
	return uint64((signed << 1) ^ (signed >> 63))
}

// zigzagDecode inverts zigzagEncode.
func zigzagDecode(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

func textClassFor(b byte) rast.TokenClass {
	switch b {
	case classSymbol:
		return rast.TokSymbol
	case classIdent:
		return rast.TokIdent
	case classLifetime:
		return rast.TokLifetime
	case classString:
		return rast.TokString
	default:
		return rast.TokByteString
	}
}
