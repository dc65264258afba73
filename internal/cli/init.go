package cli

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ekisa-team/infero/internal/config"
)

// runInit writes infero.yaml, prompting for values unless --default is set.
func (a *App) runInit(args []string) error {
	fs := a.flagSet("init")
	dir := fs.StringP("config-path", "c", ".", "Directory to write "+config.FileName+" into")
	useDefault := fs.BoolP("default", "d", false, "Initialize with default values")
	force := fs.BoolP("force", "f", false, "Overwrite an existing configuration")
	if err := parse(fs, args); err != nil {
		return err
	}

	path := filepath.Join(*dir, config.FileName)
	fmt.Fprintln(a.Stdout, "Initializing...")

	if config.Exists(path) && !*force {
		fmt.Fprintln(a.Stdout, "Already initialized.")
		return nil
	}

	cfg := config.Default()
	if !*useDefault {
		if err := a.prompt(cfg); err != nil {
			return err
		}
	}

	if err := cfg.Save(path); err != nil {
		return err
	}

	fmt.Fprintf(a.Stdout, "Initialized successfully: %s\n", path)
	return nil
}

type prompter struct {
	in  *bufio.Scanner
	app *App
}

func (p *prompter) line(label, def string) string {
	if def != "" {
		fmt.Fprintf(p.app.Stdout, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.app.Stdout, "%s: ", label)
	}

	if !p.in.Scan() {
		return def
	}
	if v := strings.TrimSpace(p.in.Text()); v != "" {
		return v
	}
	return def
}

func (p *prompter) confirm(label string, def bool) bool {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}

	switch strings.ToLower(p.line(label+" ("+hint+")", "")) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return def
	}
}

func (a *App) prompt(cfg *config.File) error {
	p := &prompter{in: bufio.NewScanner(a.Stdin), app: a}
	s := &cfg.Infero.Server

	fmt.Fprintln(a.Stdout, "Please provide the following information to initialize the project configuration:")
	s.Name = p.line("Project name", s.Name)
	s.Description = p.line("Project description", s.Description)
	s.Version = p.line("Project version", s.Version)

	fmt.Fprintln(a.Stdout, "Now the HTTP settings:")
	s.HTTP.Host = p.line("Host", s.HTTP.Host)

	raw := p.line("Port", strconv.Itoa(s.HTTP.Port))
	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q", raw)
	}
	s.HTTP.Port = port
	s.HTTP.Debug = p.confirm("Run the API server in debug mode?", s.HTTP.Debug)
	s.HTTP.AccessLog = p.confirm("Enable access logs?", s.HTTP.AccessLog)

	if !p.confirm("Add a default route?", true) {
		s.Route = nil
	}

	return nil
}
