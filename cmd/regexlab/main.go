// cmd/regexlab/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/colebrumley/regexlab/internal/config"
	"github.com/colebrumley/regexlab/internal/logging"
	"github.com/colebrumley/regexlab/internal/presets"
	"github.com/colebrumley/regexlab/internal/security"
	"github.com/colebrumley/regexlab/internal/session"
	"github.com/colebrumley/regexlab/internal/state"
	"github.com/colebrumley/regexlab/internal/watch"
	"gopkg.in/yaml.v3"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "init":
		err = cmdInit()
	case "show":
		err = cmdShow()
	case "set":
		err = cmdSet(args)
	case "source":
		err = cmdSource(args)
	case "preview":
		err = cmdPreview(args)
	case "clear":
		err = cmdClear()
	case "reset":
		err = cmdReset()
	case "export":
		err = cmdExport(args)
	case "import":
		err = cmdImport(args)
	case "watch":
		err = cmdWatch(args)
	case "preset":
		err = cmdPreset(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`regexlab - Regex match and replace preview

Usage: regexlab <command> [options]

Commands:
  init                          Create the config file and data directory
  show                          Show the saved pattern, flags, template and sources
  set <field> <value>           Set regex, flags, replacement or depth
  source add [text]             Append a sample source
  source edit <index> <text>    Replace a sample source
  source delete <index>         Remove a sample source
  source list                   List sample sources
  preview [--json]              Render the match and replace panels
  clear                         Clear the persisted state
  reset                         Reset the persisted state to defaults
  export [file]                 Write the state record as JSON
  import <file>                 Load a JSON state record
  watch <file>                  Re-render whenever a YAML session file changes
  preset save <name> [desc]     Save the current state as a preset
  preset find <query>           Search presets
  preset list                   List presets
  preset load <name|id>         Make a preset the current state
  preset delete <id>            Remove a preset`)
}

// env bundles what most commands need
type env struct {
	cfg    *config.Global
	store  *state.DB
	opts   session.Options
	logger *slog.Logger
	closer io.Closer
}

func openEnv() (*env, error) {
	cfgPath := config.DefaultPath()
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := security.ValidateFilePermissions(cfgPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	logger, closer, err := logging.Setup(cfg.Logging.Format, cfg.Logging.Level, cfg.Logging.File, cfg.Logging.MaxSizeMB)
	if err != nil {
		return nil, fmt.Errorf("opening log: %w", err)
	}

	opts, err := cfg.SessionOptions()
	if err != nil {
		closer.Close()
		return nil, err
	}

	store, err := state.Open(cfg.Storage.Path)
	if err != nil {
		closer.Close()
		return nil, err
	}

	return &env{
		cfg:    cfg,
		store:  store,
		opts:   opts,
		logger: logging.WithSlot(logger, cfg.Storage.SlotKey),
		closer: closer,
	}, nil
}

func (e *env) Close() {
	e.store.Close()
	e.closer.Close()
}

// load returns the slot's session; an unusable record falls back to defaults
func (e *env) load() *session.Session {
	st, err := e.store.Load(e.cfg.Storage.SlotKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v (using defaults)\n", err)
	}
	return session.New(st, e.opts)
}

// commit persists res and reports it
func (e *env) commit(sess *session.Session, res session.Result) error {
	if err := e.store.Save(e.cfg.Storage.SlotKey, res.State); err != nil {
		return err
	}
	if _, err := e.store.RecordPreview(state.NewPreviewRecord(e.cfg.Storage.SlotKey, res)); err != nil {
		e.logger.Warn("recording preview failed", "error", err)
	}
	printStatus(sess, res)
	return nil
}

func printStatus(sess *session.Session, res session.Result) {
	fmt.Println(sess.Summary())
	if res.Warning != "" {
		fmt.Println("warning:", res.Warning)
	}
}

func cmdInit() error {
	cfgPath := config.DefaultPath()
	if err := security.EnsurePrivateDir(filepath.Dir(cfgPath)); err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		data, err := yaml.Marshal(config.Default())
		if err != nil {
			return err
		}
		if err := os.WriteFile(cfgPath, data, 0600); err != nil {
			return err
		}
		fmt.Printf("Created %s\n", cfgPath)
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	fmt.Printf("State database at %s\n", e.cfg.Storage.Path)
	return nil
}

func cmdShow() error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	sess := e.load()
	st := sess.State()
	fmt.Printf("%-12s /%s/%s\n", "pattern", st.Regex, st.Flags)
	fmt.Printf("%-12s %s\n", "replacement", st.Replacement)
	fmt.Printf("%-12s %d\n", "depth", st.Depth)
	fmt.Printf("%-12s %d\n", "sources", len(st.Sources))
	printStatus(sess, sess.Result())
	return nil
}

func cmdSet(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: regexlab set <regex|flags|replacement|depth> <value>")
	}
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	sess := e.load()
	var res session.Result
	switch args[0] {
	case "regex":
		res = sess.SetRegex(args[1])
	case "flags":
		res = sess.SetFlags(args[1])
	case "replacement":
		res = sess.SetReplacement(args[1])
	case "depth":
		res = sess.SetDepthString(args[1])
	default:
		return fmt.Errorf("unknown field %q", args[0])
	}
	return e.commit(sess, res)
}

func cmdSource(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: regexlab source <add|edit|delete|list>")
	}
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	sess := e.load()
	switch args[0] {
	case "list":
		st := sess.State()
		protectedFrom := len(st.Sources) - st.Depth
		for i, src := range st.Sources {
			mark := " "
			if i >= protectedFrom {
				mark = "*"
			}
			fmt.Printf("%3d %s %s\n", i, mark, src)
		}
		return nil
	case "add":
		return e.commit(sess, sess.AddSource(strings.Join(args[1:], " ")))
	case "edit":
		if len(args) < 3 {
			return fmt.Errorf("usage: regexlab source edit <index> <text>")
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid index %q", args[1])
		}
		res, err := sess.EditSource(idx, strings.Join(args[2:], " "))
		if err != nil {
			return err
		}
		return e.commit(sess, res)
	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("usage: regexlab source delete <index>")
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid index %q", args[1])
		}
		res, err := sess.DeleteSource(idx)
		if err != nil {
			return err
		}
		return e.commit(sess, res)
	default:
		return fmt.Errorf("unknown source command %q", args[0])
	}
}

func cmdPreview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print the full result as JSON")
	fs.Parse(args)

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	sess := e.load()
	res := sess.Result()
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printPanels(sess, res)
	return nil
}

func printPanels(sess *session.Session, res session.Result) {
	printStatus(sess, res)
	if res.Error != "" {
		fmt.Println(res.Error)
	}
	fmt.Println("\n== matches ==")
	fmt.Println(res.Panels.Match)
	fmt.Println("\n== replacement ==")
	fmt.Println(res.Panels.Replace)
}

func cmdClear() error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.store.Clear(e.cfg.Storage.SlotKey); err != nil {
		return err
	}
	fmt.Println("Cleared persisted state")
	return nil
}

func cmdReset() error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	st, err := e.store.Reset(e.cfg.Storage.SlotKey)
	if err != nil {
		return err
	}
	sess := session.New(st, e.opts)
	printStatus(sess, sess.Result())
	return nil
}

func cmdExport(args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	data, err := session.EncodeState(e.load().State())
	if err != nil {
		return err
	}
	if len(args) == 0 {
		fmt.Println(string(data))
		return nil
	}
	return os.WriteFile(args[0], append(data, '\n'), 0600)
}

func cmdImport(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: regexlab import <file>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if _, err := session.DecodeState(data); err != nil {
		return fmt.Errorf("not a state record: %w", err)
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.store.SaveRaw(e.cfg.Storage.SlotKey, strings.TrimSpace(string(data))); err != nil {
		return err
	}
	sess := e.load()
	printStatus(sess, sess.Result())
	return nil
}

func cmdWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	save := fs.Bool("save", false, "persist each reload to the state database")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: regexlab watch [--save] <file>")
	}
	path := fs.Arg(0)

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := watch.WriteFile(path, e.load().State()); err != nil {
			return err
		}
		fmt.Printf("Created %s from the saved state\n", path)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sess := session.New(session.DefaultState(), e.opts)
	w := watch.New(path, sess, time.Duration(e.cfg.Preview.DebounceMillis)*time.Millisecond, e.logger)
	return w.Run(ctx, func(res session.Result, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return
		}
		printPanels(sess, res)
		if *save {
			if err := e.store.Save(e.cfg.Storage.SlotKey, res.State); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		}
	})
}

func cmdPreset(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: regexlab preset <save|find|list|load|delete>")
	}
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	db, err := presets.Open(e.cfg.PresetsDBPath())
	if err != nil {
		return err
	}
	defer db.Close()

	switch args[0] {
	case "save":
		if len(args) < 2 {
			return fmt.Errorf("usage: regexlab preset save <name> [description]")
		}
		id, err := db.Save(args[1], strings.Join(args[2:], " "), e.load().State())
		if err != nil {
			return err
		}
		fmt.Printf("Saved preset %q with ID %d\n", args[1], id)
		return nil
	case "find", "list":
		var found []presets.Preset
		if args[0] == "find" {
			if len(args) < 2 {
				return fmt.Errorf("usage: regexlab preset find <query>")
			}
			found, err = db.Search(strings.Join(args[1:], " "))
		} else {
			found, err = db.List()
		}
		if err != nil {
			return err
		}
		if len(found) == 0 {
			fmt.Println("No presets found")
			return nil
		}
		fmt.Printf("%-5s %-20s %-30s %s\n", "ID", "NAME", "PATTERN", "DESCRIPTION")
		fmt.Println(strings.Repeat("-", 70))
		for _, p := range found {
			pat := "/" + p.State.Regex + "/" + p.State.Flags
			if len(pat) > 30 {
				pat = pat[:27] + "..."
			}
			fmt.Printf("%-5d %-20s %-30s %s\n", p.ID, p.Name, pat, p.Description)
		}
		return nil
	case "load":
		if len(args) != 2 {
			return fmt.Errorf("usage: regexlab preset load <name|id>")
		}
		p, err := db.Get(args[1])
		if err != nil {
			return err
		}
		sess := session.New(p.State, e.opts)
		return e.commit(sess, sess.Result())
	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("usage: regexlab preset delete <id>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid preset ID %q", args[1])
		}
		if err := db.Delete(id); err != nil {
			return err
		}
		fmt.Printf("Deleted preset %d\n", id)
		return nil
	default:
		return fmt.Errorf("unknown preset command %q", args[0])
	}
}
