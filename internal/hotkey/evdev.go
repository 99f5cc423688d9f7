package hotkey

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Key codes from linux/input-event-codes.h for the keys veil can bind.
var keyCodes = map[string]uint16{
	"escape":    1,
	"tab":       15,
	"enter":     28,
	"space":     57,
	"backspace": 14,
	"up":        103,
	"down":      108,
	"left":      105,
	"right":     106,
	"kp_enter":  96,
	"a":         30, "b": 48, "c": 46, "d": 32, "e": 18, "f": 33, "g": 34,
	"h": 35, "i": 23, "j": 36, "k": 37, "l": 38, "m": 50, "n": 49,
	"o": 24, "p": 25, "q": 16, "r": 19, "s": 31, "t": 20, "u": 22,
	"v": 47, "w": 17, "x": 45, "y": 21, "z": 44,
	"0": 11, "1": 2, "2": 3, "3": 4, "4": 5, "5": 6, "6": 7, "7": 8, "8": 9, "9": 10,
	"f1": 59, "f2": 60, "f3": 61, "f4": 62, "f5": 63, "f6": 64,
	"f7": 65, "f8": 66, "f9": 67, "f10": 68, "f11": 87, "f12": 88,
}

var modifierCodes = map[uint16]Modifier{
	29:  ModCtrl,  // KEY_LEFTCTRL
	97:  ModCtrl,  // KEY_RIGHTCTRL
	42:  ModShift, // KEY_LEFTSHIFT
	54:  ModShift, // KEY_RIGHTSHIFT
	56:  ModAlt,   // KEY_LEFTALT
	100: ModAlt,   // KEY_RIGHTALT
	125: ModSuper, // KEY_LEFTMETA
	126: ModSuper, // KEY_RIGHTMETA
}

var codeNames = func() map[uint16]string {
	names := make(map[uint16]string, len(keyCodes))
	for name, code := range keyCodes {
		names[code] = name
	}
	return names
}()

const (
	evKey          = 0x01
	inputEventSize = 24 // struct input_event on 64-bit
	keyCodeA       = 30
)

// EvdevHook intercepts key events by reading the kernel input devices
// directly, which works with no display server or GUI event loop running.
type EvdevHook struct {
	logger *slog.Logger
	devDir string
}

// NewEvdevHook builds a hook over /dev/input.
func NewEvdevHook(logger *slog.Logger) *EvdevHook {
	return &EvdevHook{logger: logger, devDir: "/dev/input"}
}

// Open starts readers on every accessible keyboard device. Devices that
// cannot be opened are logged and skipped; only a total absence of usable
// devices is an error.
func (h *EvdevHook) Open(chords []Chord) (Listener, error) {
	paths, err := filepath.Glob(filepath.Join(h.devDir, "event*"))
	if err != nil {
		return nil, fmt.Errorf("scan input devices: %w", err)
	}

	want := make(map[Chord]struct{}, len(chords))
	for _, chord := range chords {
		want[chord] = struct{}{}
	}

	l := &evdevListener{
		events: make(chan Chord, 32),
		ready:  make(chan struct{}),
		want:   want,
		logger: h.logger,
	}

	for _, path := range paths {
		fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != nil {
			h.log("skip input device", path, err)
			continue
		}
		if !isKeyboard(fd) {
			_ = unix.Close(fd)
			continue
		}
		l.fds = append(l.fds, fd)
	}

	if len(l.fds) == 0 {
		close(l.events)
		return nil, errors.New("no readable keyboard devices under " + h.devDir)
	}

	var wake [2]int
	if err := unix.Pipe2(wake[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		for _, fd := range l.fds {
			_ = unix.Close(fd)
		}
		close(l.events)
		return nil, fmt.Errorf("create wake pipe: %w", err)
	}
	l.wakeR, l.wakeW = wake[0], wake[1]

	for _, fd := range l.fds {
		l.wg.Add(1)
		go l.readLoop(fd)
	}
	close(l.ready)
	return l, nil
}

func (h *EvdevHook) log(message, path string, err error) {
	if h.logger == nil {
		return
	}
	h.logger.Debug(message, "device", path, "error", err.Error())
}

type evdevListener struct {
	events chan Chord
	ready  chan struct{}
	want   map[Chord]struct{}
	logger *slog.Logger
	fds    []int
	wakeR  int
	wakeW  int

	wg        sync.WaitGroup
	closeOnce sync.Once

	mu   sync.Mutex
	mods Modifier
}

func (l *evdevListener) Events() <-chan Chord { return l.events }

func (l *evdevListener) Ready() <-chan struct{} { return l.ready }

// Close wakes every reader through the pipe, waits for all of them to
// exit, then releases the devices and closes the events channel. Events
// arriving after Close are never dispatched; the wait is bounded because
// readers park in poll, not read.
func (l *evdevListener) Close() error {
	l.closeOnce.Do(func() {
		var wake [1]byte
		_, _ = unix.Write(l.wakeW, wake[:])
		l.wg.Wait()
		for _, fd := range l.fds {
			_ = unix.Close(fd)
		}
		_ = unix.Close(l.wakeR)
		_ = unix.Close(l.wakeW)
		close(l.events)
	})
	return nil
}

// readLoop multiplexes the device fd against the wake pipe. The wake byte
// is never drained so a single write releases every reader.
func (l *evdevListener) readLoop(fd int) {
	defer l.wg.Done()

	pollFDs := []unix.PollFd{
		{Fd: int32(fd), Events: unix.POLLIN},
		{Fd: int32(l.wakeR), Events: unix.POLLIN},
	}
	buf := make([]byte, inputEventSize*16)
	for {
		pollFDs[0].Revents = 0
		pollFDs[1].Revents = 0
		if _, err := unix.Poll(pollFDs, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if pollFDs[1].Revents != 0 {
			return
		}
		if pollFDs[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return
		}
		if pollFDs[0].Revents&unix.POLLIN == 0 {
			continue
		}

		n, err := unix.Read(fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return
		}
		for off := 0; off+inputEventSize <= n; off += inputEventSize {
			eventType := binary.LittleEndian.Uint16(buf[off+16 : off+18])
			code := binary.LittleEndian.Uint16(buf[off+18 : off+20])
			value := int32(binary.LittleEndian.Uint32(buf[off+20 : off+24]))
			if eventType != evKey {
				continue
			}
			l.handleKey(code, value)
		}
	}
}

// handleKey tracks modifier state and emits matched chords on press and
// autorepeat (value 1 and 2).
func (l *evdevListener) handleKey(code uint16, value int32) {
	if mod, ok := modifierCodes[code]; ok {
		l.mu.Lock()
		if value == 0 {
			l.mods &^= mod
		} else {
			l.mods |= mod
		}
		l.mu.Unlock()
		return
	}

	if value != 1 && value != 2 {
		return
	}
	name, ok := codeNames[code]
	if !ok {
		return
	}

	l.mu.Lock()
	chord := Chord{Mods: l.mods, Key: name}
	l.mu.Unlock()

	if _, bound := l.want[chord]; !bound {
		return
	}

	select {
	case l.events <- chord:
	default:
		if l.logger != nil {
			l.logger.Warn("hotkey event dropped, consumer stalled", "chord", chord.String())
		}
	}
}

// isKeyboard reports whether the device advertises EV_KEY with an A key,
// which filters out mice, switches, and power buttons.
func isKeyboard(fd int) bool {
	var keyBits [96]byte // (KEY_MAX+7)/8 rounded up
	if err := ioctlGetBits(fd, evKey, keyBits[:]); err != nil {
		return false
	}
	return keyBits[keyCodeA/8]&(1<<(keyCodeA%8)) != 0
}

// ioctlGetBits issues EVIOCGBIT(ev, len(buf)) into buf.
func ioctlGetBits(fd int, ev int, buf []byte) error {
	const iocRead = 2
	req := uintptr(iocRead<<30 | len(buf)<<16 | int('E')<<8 | (0x20 + ev))
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return errno
	}
	return nil
}
