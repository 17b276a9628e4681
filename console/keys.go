package console

import (
	"errors"
	"io"
	"time"
	"unicode"
	"unicode/utf8"
)

type keyKind int

const (
	keyRune keyKind = iota
	keyEnter
	keyBackspace
	keyDelete
	keyLeft
	keyRight
	keyUp
	keyDown
	keyHome
	keyEnd
	keyPageUp
	keyPageDown
	keyTab
	keyEsc
	keyCtrlA
	keyCtrlE
	keyCtrlC
	keyCtrlU
)

type key struct {
	kind  keyKind
	r     rune
	shift bool
}

// escTimeout is how long an ESC waits for the rest of an escape sequence
// before it counts as the Esc key. Sequences may arrive split across reads.
const escTimeout = 50 * time.Millisecond

var errStopped = errors.New("key reader stopped")

// keyStream hands out input bytes one at a time. A pump goroutine reads the
// terminal so the decoder can wait a bounded time for the next byte.
type keyStream struct {
	chunks chan []byte
	err    error
	buf    []byte
	done   <-chan struct{}
}

func newKeyStream(r io.Reader, done <-chan struct{}) *keyStream {
	s := &keyStream{chunks: make(chan []byte), done: done}
	go s.pump(r)
	return s
}

// pump sets err before closing chunks, so readers see it after the close.
func (s *keyStream) pump(r io.Reader) {
	defer close(s.chunks)
	for {
		p := make([]byte, 256)
		n, err := r.Read(p)
		if n > 0 {
			select {
			case s.chunks <- p[:n]:
			case <-s.done:
				return
			}
		}
		if err != nil {
			s.err = err
			return
		}
	}
}

// next returns the next byte. A positive wait bounds how long it blocks;
// ok is false when nothing arrived in time or the input ended.
func (s *keyStream) next(wait time.Duration) (b byte, ok bool, err error) {
	if len(s.buf) == 0 {
		var timeout <-chan time.Time
		if wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			timeout = timer.C
		}
		select {
		case p, open := <-s.chunks:
			if !open {
				if s.err == nil {
					return 0, false, errStopped
				}
				return 0, false, s.err
			}
			s.buf = p
		case <-timeout:
			return 0, false, nil
		case <-s.done:
			return 0, false, errStopped
		}
	}
	b = s.buf[0]
	s.buf = s.buf[1:]
	return b, true, nil
}

func (s *keyStream) unread(b byte) {
	s.buf = append([]byte{b}, s.buf...)
}

// readKeys decodes terminal input into keys until r fails or done closes.
// It returns the read error, io.EOF when the input ends, or nil after done.
func readKeys(r io.Reader, out chan<- key, done <-chan struct{}) error {
	s := newKeyStream(r, done)
	send := func(k key) bool {
		select {
		case out <- k:
			return true
		case <-done:
			return false
		}
	}
	lastWasCR := false
	for {
		b, _, err := s.next(0)
		if errors.Is(err, errStopped) {
			return nil
		}
		if err != nil {
			return err
		}
		if lastWasCR {
			lastWasCR = false
			if b == '\n' {
				continue
			}
		}
		var k key
		switch b {
		case 0x1b:
			var ok bool
			k, ok = readEscape(s)
			if !ok {
				continue
			}
		case '\r':
			k = key{kind: keyEnter}
			lastWasCR = true
		case '\n':
			k = key{kind: keyEnter}
		case 0x7f, 0x08:
			k = key{kind: keyBackspace}
		case 0x01:
			k = key{kind: keyCtrlA}
		case 0x05:
			k = key{kind: keyCtrlE}
		case 0x03:
			k = key{kind: keyCtrlC}
		case 0x15:
			k = key{kind: keyCtrlU}
		case 0x09:
			k = key{kind: keyTab}
		default:
			if b < 0x20 {
				continue
			}
			rn, ok := readRune(s, b)
			if !ok {
				continue
			}
			k = key{kind: keyRune, r: rn}
		}
		if !send(k) {
			return nil
		}
	}
}

// readRune completes the UTF-8 sequence that starts with lead.
func readRune(s *keyStream, lead byte) (rune, bool) {
	if lead < utf8.RuneSelf {
		return rune(lead), true
	}
	var size int
	switch {
	case lead&0xe0 == 0xc0:
		size = 2
	case lead&0xf0 == 0xe0:
		size = 3
	case lead&0xf8 == 0xf0:
		size = 4
	default:
		return 0, false
	}
	p := []byte{lead}
	for len(p) < size {
		b, ok, _ := s.next(0)
		if !ok {
			return 0, false
		}
		p = append(p, b)
	}
	rn, _ := utf8.DecodeRune(p)
	return rn, rn != utf8.RuneError
}

// readEscape decodes the bytes after ESC. An ESC that nothing follows within
// escTimeout is the Esc key itself.
func readEscape(s *keyStream) (key, bool) {
	b, ok, _ := s.next(escTimeout)
	if !ok {
		return key{kind: keyEsc}, true
	}
	switch b {
	case '[':
		return readCSI(s)
	case 'O':
		return readSS3(s)
	case 0x1b:
		s.unread(b)
		return key{kind: keyEsc}, true
	}
	return key{}, false
}

func readCSI(s *keyStream) (key, bool) {
	seq := []byte{}
	for {
		b, ok, _ := s.next(escTimeout)
		if !ok {
			return key{}, false
		}
		seq = append(seq, b)
		if b == '~' || unicode.IsLetter(rune(b)) {
			break
		}
		if len(seq) > 8 {
			return key{}, false
		}
	}
	switch string(seq) {
	case "A":
		return key{kind: keyUp}, true
	case "B":
		return key{kind: keyDown}, true
	case "C":
		return key{kind: keyRight}, true
	case "D":
		return key{kind: keyLeft}, true
	case "1;2A", "a":
		return key{kind: keyUp, shift: true}, true
	case "1;2B", "b":
		return key{kind: keyDown, shift: true}, true
	case "H", "1~", "7~":
		return key{kind: keyHome}, true
	case "F", "4~", "8~":
		return key{kind: keyEnd}, true
	case "5~":
		return key{kind: keyPageUp}, true
	case "6~":
		return key{kind: keyPageDown}, true
	case "3~":
		return key{kind: keyDelete}, true
	}
	return key{}, false
}

func readSS3(s *keyStream) (key, bool) {
	b, ok, _ := s.next(escTimeout)
	if !ok {
		return key{}, false
	}
	switch b {
	case 'A':
		return key{kind: keyUp}, true
	case 'B':
		return key{kind: keyDown}, true
	case 'C':
		return key{kind: keyRight}, true
	case 'D':
		return key{kind: keyLeft}, true
	case 'H':
		return key{kind: keyHome}, true
	case 'F':
		return key{kind: keyEnd}, true
	}
	return key{}, false
}
