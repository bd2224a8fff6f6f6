// Command poolcli is a TCP client REPL for cmd/poolsrv. Grounded on
// the teacher's client/main.go (readline REPL with history file,
// tablewriter-formatted output) with query sending replaced by
// internal/protocol commands.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/olekukonko/tablewriter"

	"bufpool/internal/protocol"
)

func formatResult(op string, result json.RawMessage, w *os.File) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"field", "value"})

	var m map[string]interface{}
	if err := json.Unmarshal(result, &m); err != nil {
		fmt.Fprintln(w, string(result))
		return
	}
	for k, v := range m {
		table.Append([]string{k, fmt.Sprintf("%v", v)})
	}
	table.Render()
}

// parseLine turns a REPL line like "fetch 3" or "write 3 0 hello" into
// a protocol.Command with a JSON args payload matching poolsrv's
// expected shape for that op.
func parseLine(line string) (*protocol.Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	op := fields[0]
	rest := fields[1:]

	var args interface{}
	switch op {
	case "fetch", "flush", "delete":
		if len(rest) != 1 {
			return nil, fmt.Errorf("usage: %s <id>", op)
		}
		id, err := strconv.ParseInt(rest[0], 10, 32)
		if err != nil {
			return nil, err
		}
		args = map[string]interface{}{"id": int32(id)}

	case "new", "flushall":
		if len(rest) != 0 {
			return nil, fmt.Errorf("usage: %s", op)
		}

	case "write":
		if len(rest) < 3 {
			return nil, fmt.Errorf("usage: write <id> <offset> <data>")
		}
		id, err := strconv.ParseInt(rest[0], 10, 32)
		if err != nil {
			return nil, err
		}
		offset, err := strconv.Atoi(rest[1])
		if err != nil {
			return nil, err
		}
		args = map[string]interface{}{
			"id":     int32(id),
			"offset": offset,
			"data":   strings.Join(rest[2:], " "),
		}

	case "unpin":
		if len(rest) != 2 {
			return nil, fmt.Errorf("usage: unpin <id> <true|false>")
		}
		id, err := strconv.ParseInt(rest[0], 10, 32)
		if err != nil {
			return nil, err
		}
		dirty, err := strconv.ParseBool(rest[1])
		if err != nil {
			return nil, err
		}
		args = map[string]interface{}{"id": int32(id), "dirty": dirty}

	default:
		return nil, fmt.Errorf("unknown op: %s", op)
	}

	var raw json.RawMessage
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return &protocol.Command{Op: op, Args: raw}, nil
}

func runCLI(history string, conn net.Conn) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "poolcli> ",
		HistoryFile: history,
	})
	if err != nil {
		fmt.Println("failed to initialize readline:", err)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		cmd, err := parseLine(line)
		if err != nil {
			fmt.Println("failed to parse command:", err)
			continue
		}

		if err := protocol.SendCommand(conn, cmd); err != nil {
			log.Fatal("failed to send command: ", err)
		}

		resp, err := protocol.ReceiveResponse(conn)
		if err != nil {
			log.Fatal("failed to receive response: ", err)
		}
		if resp == nil {
			continue
		}
		if resp.Error != "" {
			fmt.Println("error:", resp.Error)
			continue
		}
		if len(resp.Result) > 0 {
			formatResult(cmd.Op, resp.Result, os.Stdout)
		}
	}
}

func main() {
	addr := flag.String("addr", "localhost:1337", "address of the server")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatal("failed to connect to server: ", err)
	}
	defer conn.Close()

	currentDir, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	history := filepath.Join(currentDir, "history.txt")
	runCLI(history, conn)
}
