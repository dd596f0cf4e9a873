package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// requestTimeout bounds how long a client may take to write its request line.
const requestTimeout = 2 * time.Second

// Handler processes one control request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve answers one request per connection until ctx is canceled or the listener closes.
// Malformed requests are answered with an error and never reach handler.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept control connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			serveConn(ctx, conn, handler)
		}()
	}
}

func serveConn(ctx context.Context, conn net.Conn, handler Handler) {
	defer conn.Close()

	resp := func() Response {
		if err := conn.SetReadDeadline(time.Now().Add(requestTimeout)); err != nil {
			return Response{Error: fmt.Sprintf("set deadline: %v", err)}
		}
		line, err := bufio.NewReader(conn).ReadBytes('\n')
		if err != nil {
			return Response{Error: fmt.Sprintf("read request: %v", err)}
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			return Response{Error: fmt.Sprintf("decode request: %v", err)}
		}
		if err := req.Validate(); err != nil {
			return Response{Error: err.Error()}
		}
		return handler.Handle(ctx, req)
	}()

	_ = json.NewEncoder(conn).Encode(resp)
}
