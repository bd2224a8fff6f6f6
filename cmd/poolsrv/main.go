// Command poolsrv is a TCP server exposing a buffer pool to remote
// admin clients (cmd/poolcli). Grounded on the teacher's server/main.go
// (listener loop, one goroutine per connection, context-cancelled
// shutdown on SIGINT) with the SQL dispatch replaced by buffer-pool
// admin commands framed via internal/protocol.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"

	"bufpool"
	"bufpool/internal/protocol"
)

// server wraps a bufpool.Pool with the mutex the core deliberately omits
// (spec.md §5: the core is single-threaded and not safe to share across
// goroutines on its own). One connection per goroutine means dispatch
// must serialize pool access itself, the same way the teacher's
// database.go guarded its table map with a sync.RWMutex one layer above
// its own Pager.
type server struct {
	mu   sync.Mutex
	pool *bufpool.Pool
}

type fetchArgs struct {
	ID int32 `json:"id"`
}

type writeArgs struct {
	ID     int32  `json:"id"`
	Offset int    `json:"offset"`
	Data   string `json:"data"`
}

type unpinArgs struct {
	ID    int32 `json:"id"`
	Dirty bool  `json:"dirty"`
}

type fetchResult struct {
	ID   int32  `json:"id"`
	Data string `json:"data"`
}

type newResult struct {
	ID int32 `json:"id"`
}

func dispatch(srv *server, cmd *protocol.Command) (interface{}, error) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	pool := srv.pool

	switch cmd.Op {
	case "fetch":
		var args fetchArgs
		if err := json.Unmarshal(cmd.Args, &args); err != nil {
			return nil, err
		}
		id := bufpool.PageID(args.ID)
		frame, err := pool.FetchPage(id)
		if err != nil {
			return nil, err
		}
		defer pool.UnpinPage(id, false)
		return fetchResult{ID: int32(id), Data: string(frame.Data())}, nil

	case "new":
		frame, err := pool.NewPage()
		if err != nil {
			return nil, err
		}
		id := frame.PageID()
		if err := pool.UnpinPage(id, false); err != nil {
			return nil, err
		}
		return newResult{ID: int32(id)}, nil

	case "write":
		var args writeArgs
		if err := json.Unmarshal(cmd.Args, &args); err != nil {
			return nil, err
		}
		id := bufpool.PageID(args.ID)
		frame, err := pool.FetchPage(id)
		if err != nil {
			return nil, err
		}
		offset := bufpool.ChecksumSize + args.Offset
		copy(frame.Data()[offset:], args.Data)
		if err := pool.UnpinPage(id, true); err != nil {
			return nil, err
		}
		return nil, nil

	case "unpin":
		var args unpinArgs
		if err := json.Unmarshal(cmd.Args, &args); err != nil {
			return nil, err
		}
		return nil, pool.UnpinPage(bufpool.PageID(args.ID), args.Dirty)

	case "flush":
		var args fetchArgs
		if err := json.Unmarshal(cmd.Args, &args); err != nil {
			return nil, err
		}
		return nil, pool.FlushPage(bufpool.PageID(args.ID))

	case "flushall":
		return nil, pool.FlushAllPages()

	case "delete":
		var args fetchArgs
		if err := json.Unmarshal(cmd.Args, &args); err != nil {
			return nil, err
		}
		return nil, pool.DeletePage(bufpool.PageID(args.ID))

	default:
		return nil, errors.New("unknown op: " + cmd.Op)
	}
}

func handleClient(srv *server, conn net.Conn) {
	defer conn.Close()
	for {
		cmd, err := protocol.ReceiveCommand(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Printf("[%v] connection closed\n", conn.RemoteAddr())
				return
			}
			log.Printf("[%v] failed to receive command: %v\n", conn.RemoteAddr(), err)
			return
		}
		if cmd == nil {
			continue
		}

		resp := &protocol.Response{}
		result, err := dispatch(srv, cmd)
		if err != nil {
			resp.Error = err.Error()
		} else if result != nil {
			data, marshalErr := json.Marshal(result)
			if marshalErr != nil {
				log.Fatal(marshalErr)
			}
			resp.Result = data
		}

		if err := protocol.SendResponse(conn, resp); err != nil {
			log.Printf("[%v] failed to send response: %v\n", conn.RemoteAddr(), err)
			return
		}
	}
}

func runServer(ctx context.Context, srv *server, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		log.Printf("[%v] connected\n", conn.RemoteAddr())
		go handleClient(srv, conn)
	}
}

func main() {
	dbPath := flag.String("db", "pool.db", "database file path")
	size := flag.Int("size", 128, "buffer pool frame count")
	addr := flag.String("addr", "localhost:1337", "address to bind to")
	flag.Parse()

	pool, err := bufpool.OpenPool(*size, *dbPath)
	if err != nil {
		log.Fatal("failed to open pool: ", err)
	}
	defer pool.Close()
	srv := &server{pool: pool}

	log.Println("starting on", *addr)

	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		cancel()
	}()

	if err := runServer(ctx, srv, *addr); err != nil {
		log.Fatal("server error: ", err)
	}
	log.Println("closed successfully")
}
