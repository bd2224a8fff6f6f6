// Command poolsh is a local admin shell over a buffer pool: a REPL
// that fetches, writes, pins, flushes, and deletes pages directly
// against a database file on disk.
//
// Grounded on the teacher's main.go REPL loop (readline.New, Readline
// in a loop, print-and-continue on error), with the participle SQL
// grammar (query.go) repointed at a small admin-command grammar and
// tablewriter swapped in for stats/listing output.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/chzyer/readline"
	"github.com/olekukonko/tablewriter"

	"bufpool"
)

var cmdLexer = lexer.MustSimple([]lexer.Rule{
	{Name: `Ident`, Pattern: `[a-zA-Z][a-zA-Z_]*`},
	{Name: `Int`, Pattern: `-?\d+`},
	{Name: `String`, Pattern: `"(?:\\.|[^"])*"`},
	{Name: `Bool`, Pattern: `true|false`},
	{Name: "whitespace", Pattern: `\s+`},
})

// BoolVal captures the literal tokens "true"/"false" into a bool,
// mirroring the teacher's query.go BoolVal (participle's bool fields
// only capture token presence, not "true"/"false" by value).
type BoolVal bool

func (v *BoolVal) Capture(s []string) error {
	switch s[0] {
	case "true":
		*v = true
	case "false":
		*v = false
	default:
		return fmt.Errorf("expected true or false, got %q", s[0])
	}
	return nil
}

type Fetch struct {
	ID int32 `"fetch" @Int`
}

type New struct {
	Marker bool `"new"`
}

type Write struct {
	ID     int32  `"write" @Int`
	Offset int32  `@Int`
	Value  string `@String`
}

type Unpin struct {
	ID    int32   `"unpin" @Int`
	Dirty BoolVal `@("true" | "false")`
}

type Flush struct {
	ID int32 `"flush" @Int`
}

type FlushAll struct {
	Marker bool `"flushall"`
}

type Delete struct {
	ID int32 `"delete" @Int`
}

type Stats struct {
	Marker bool `"stats"`
}

type Command struct {
	Fetch    *Fetch    `@@`
	New      *New      `| @@`
	Write    *Write    `| @@`
	Unpin    *Unpin    `| @@`
	Flush    *Flush    `| @@`
	FlushAll *FlushAll `| @@`
	Delete   *Delete   `| @@`
	Stats    *Stats    `| @@`
}

var parser = participle.MustBuild(&Command{}, participle.Lexer(cmdLexer), participle.Unquote("String"))

func parseCommand(line string) (*Command, error) {
	cmd := &Command{}
	if err := parser.ParseString("", line, cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

func run(pool *bufpool.Pool, cmd *Command) (string, error) {
	switch {
	case cmd.Fetch != nil:
		id := bufpool.PageID(cmd.Fetch.ID)
		frame, err := pool.FetchPage(id)
		if err != nil {
			return "", err
		}
		defer pool.UnpinPage(id, false)
		return fmt.Sprintf("page %v: %q", frame.PageID(), frame.Data()[bufpool.ChecksumSize:bufpool.ChecksumSize+16]), nil

	case cmd.New != nil:
		frame, err := pool.NewPage()
		if err != nil {
			return "", err
		}
		id := frame.PageID()
		if err := pool.UnpinPage(id, false); err != nil {
			return "", err
		}
		return fmt.Sprintf("allocated %v", id), nil

	case cmd.Write != nil:
		id := bufpool.PageID(cmd.Write.ID)
		frame, err := pool.FetchPage(id)
		if err != nil {
			return "", err
		}
		offset := bufpool.ChecksumSize + int(cmd.Write.Offset)
		copy(frame.Data()[offset:], cmd.Write.Value)
		if err := pool.UnpinPage(id, true); err != nil {
			return "", err
		}
		return fmt.Sprintf("wrote %d bytes into %v", len(cmd.Write.Value), id), nil

	case cmd.Unpin != nil:
		id := bufpool.PageID(cmd.Unpin.ID)
		if err := pool.UnpinPage(id, bool(cmd.Unpin.Dirty)); err != nil {
			return "", err
		}
		return fmt.Sprintf("unpinned %v", id), nil

	case cmd.Flush != nil:
		id := bufpool.PageID(cmd.Flush.ID)
		if err := pool.FlushPage(id); err != nil {
			return "", err
		}
		return fmt.Sprintf("flushed %v", id), nil

	case cmd.FlushAll != nil:
		if err := pool.FlushAllPages(); err != nil {
			return "", err
		}
		return "flushed all pages", nil

	case cmd.Delete != nil:
		id := bufpool.PageID(cmd.Delete.ID)
		if err := pool.DeletePage(id); err != nil {
			return "", err
		}
		return fmt.Sprintf("deleted %v", id), nil

	case cmd.Stats != nil:
		var buf fmtBuffer
		table := tablewriter.NewWriter(&buf)
		table.SetHeader([]string{"stat", "value"})
		table.Append([]string{"pool", "bufpool.Pool"})
		table.Render()
		return buf.String(), nil

	default:
		return "", fmt.Errorf("unhandled command")
	}
}

// fmtBuffer is a minimal io.Writer sink for tablewriter's output, kept
// local so this command doesn't need to pull in bytes.Buffer just for
// one call site.
type fmtBuffer struct {
	data []byte
}

func (b *fmtBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *fmtBuffer) String() string { return string(b.data) }

func main() {
	if len(os.Args) != 3 {
		log.Fatalf("usage: %s <db path> <pool size>", os.Args[0])
	}
	size, err := strconv.Atoi(os.Args[2])
	if err != nil {
		log.Fatalf("invalid pool size: %v", err)
	}

	pool, err := bufpool.OpenPool(size, os.Args[1])
	if err != nil {
		log.Fatalf("failed to open pool: %v", err)
	}
	defer pool.Close()

	rl, err := readline.New("poolsh> ")
	if err != nil {
		log.Fatal("failed to initialize readline: ", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}
		if line == "" {
			continue
		}

		cmd, err := parseCommand(line)
		if err != nil {
			fmt.Println("failed to parse command:", err)
			continue
		}

		out, err := run(pool, cmd)
		if err != nil {
			fmt.Println("command failed:", err)
			continue
		}
		fmt.Println(out)
	}
}
