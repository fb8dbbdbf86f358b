// Command condmerge applies a conditional merge request to a record.
//
// With -record the record is read from a file and the result is printed.
// Without it the record is loaded from the Redis store named in the config,
// saved back and the event is appended to the configured journal.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/hkloudou/condmerge"
	"github.com/hkloudou/condmerge/internal/config"
	"github.com/mattn/go-isatty"
	"github.com/wI2L/jsondiff"
)

// requestFile is the on-disk request; conditions keep their key order
type requestFile struct {
	TargetID   string            `json:"targetId"`
	Path       string            `json:"path"`
	Value      json.RawMessage   `json:"value"`
	Conditions json.RawMessage   `json:"conditions"`
	Headers    condmerge.Headers `json:"headers"`
	Metadata   json.RawMessage   `json:"metadata"`
}

type output struct {
	Event    *condmerge.ChangeEvent `json:"event"`
	Response *condmerge.Response    `json:"response"`
	Diff     jsondiff.Patch         `json:"diff,omitempty"`
}

func main() {
	var (
		configPath  = flag.String("config", "", "YAML config file")
		recordPath  = flag.String("record", "", "record JSON file (omit to use the configured Redis store)")
		requestPath = flag.String("request", "-", "request JSON file, - for stdin")
		showDiff    = flag.Bool("diff", false, "include the RFC 6902 diff between previous and merged record")
		showTrace   = flag.Bool("trace", false, "print stage timings to stderr")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	terminal := isatty.IsTerminal(os.Stderr.Fd())
	var handler slog.Handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	if terminal {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *showTrace {
		ctx = condmerge.WithTrace(ctx)
	}

	var diffOut io.Writer
	if *showDiff && terminal {
		diffOut = os.Stderr
	}
	err := run(ctx, logger, *configPath, *recordPath, *requestPath, *showDiff, os.Stdout, diffOut)
	if *showTrace {
		fmt.Fprint(os.Stderr, condmerge.TraceDump(ctx))
	}
	if err != nil {
		logger.Error("merge failed", "error", err, "kind", condmerge.ErrorKindOf(err))
		os.Exit(1)
	}
}

// run merges and writes the JSON output to w. A non-nil diffOut also gets a
// colored line-per-operation diff.
func run(ctx context.Context, logger *slog.Logger, configPath, recordPath, requestPath string, showDiff bool, w, diffOut io.Writer) error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadFile(configPath); err != nil {
			return err
		}
	}

	opts, err := cfg.MergerOptions()
	if err != nil {
		return err
	}
	merger := condmerge.New(append(opts, condmerge.WithLogger(logger))...)

	req, err := readRequest(requestPath)
	if err != nil {
		return err
	}

	var previous *condmerge.Record
	var res *condmerge.Result
	if recordPath != "" {
		previous, err = readRecord(recordPath)
		if err != nil {
			return err
		}
		if req.TargetID == "" {
			req.TargetID = previous.ID
		}
		req.NextRevision = previous.Revision + 1
		req.Timestamp = time.Now().UTC()
		res, err = merger.Apply(ctx, previous, req)
	} else {
		previous, res, err = mergeStored(ctx, logger, cfg, merger, req)
	}
	if err != nil {
		return err
	}

	out := output{Event: res.Event, Response: res.Response}
	if showDiff {
		out.Diff, err = jsondiff.CompareJSON(previous.JSON(), res.Record.JSON())
		if err != nil {
			return fmt.Errorf("failed to diff records: %w", err)
		}
		if diffOut != nil {
			printDiff(diffOut, out.Diff, true)
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// mergeStored runs req through a Service on the configured Redis store and journal
func mergeStored(ctx context.Context, logger *slog.Logger, cfg *config.Config, merger *condmerge.Merger, req *condmerge.Request) (*condmerge.Record, *condmerge.Result, error) {
	rdb, err := cfg.RedisClient()
	if err != nil {
		return nil, nil, err
	}
	if rdb == nil {
		return nil, nil, fmt.Errorf("-record is required when no store.redis_url is configured")
	}
	defer rdb.Close()

	stor, err := cfg.CreateStorage()
	if err != nil {
		return nil, nil, err
	}
	store := condmerge.NewRedisStore(rdb, cfg.Store.Prefix, logger)
	journal := condmerge.NewJournal(stor, cfg.Journal.Prefix, cfg.Journal.AESKey, logger)
	svc := condmerge.NewService(merger, store, journal, condmerge.WithServiceLogger(logger))

	previous, err := store.Load(ctx, req.TargetID)
	if err != nil {
		return nil, nil, err
	}
	res, err := svc.Merge(ctx, req)
	return previous, res, err
}

func readRequest(path string) (*condmerge.Request, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	var rf requestFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	conds, err := condmerge.ParseConditions(rf.Conditions, rf.Headers)
	if err != nil {
		return nil, err
	}
	return &condmerge.Request{
		TargetID:   rf.TargetID,
		Path:       rf.Path,
		Value:      rf.Value,
		Conditions: conds,
		Headers:    rf.Headers,
		Metadata:   rf.Metadata,
	}, nil
}

func readRecord(path string) (*condmerge.Record, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	return condmerge.ParseRecord(data)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
