package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
)

// Handler answers one control command from a forwarded CLI invocation.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve answers control clients on the owned socket until the context is
// canceled or the listener closes. Each connection carries exactly one
// command line and one reply; in-flight replies finish before Serve returns.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			return fmt.Errorf("accept control connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			answer(ctx, conn, handler)
		}()
	}
}

// answer handles one command line on conn. Malformed input gets an error
// reply rather than a dropped connection so the CLI side can print it.
func answer(ctx context.Context, conn net.Conn, handler Handler) {
	defer conn.Close()

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		reply(conn, Response{Error: fmt.Sprintf("read command: %v", err)})
		return
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		reply(conn, Response{Error: fmt.Sprintf("decode command: %v", err)})
		return
	}

	reply(conn, handler.Handle(ctx, req))
}

func reply(conn net.Conn, resp Response) {
	_ = json.NewEncoder(conn).Encode(resp)
}
