// Package sh provides an interactive radio console on the air hub.
package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/espnow.go/pkg/env"
	"github.com/robotalks/espnow.go/pkg/radio"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoJoin    bool
	URL         string
	Addr        radio.Addr

	Shell   *ishell.Shell
	Session *Session
}

const (
	shellKey       = "$shell"
	detachedPrompt = "[air] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	airURL     = "ws://localhost:7420/air"
	stationArg string

	commands = []*ishell.Cmd{
		&JoinCmd,
		&LeaveCmd,
		&AssocCmd,
		&StateCmd,
		&ChannelCmd,
		&SendCmd,
	}
)

func init() {
	if val := os.Getenv("ESPNODE_AIR_URL"); val != "" {
		airURL = val
	}
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&airURL, "air", airURL, "Air hub URL.")
	flag.StringVar(&stationArg, "addr", stationArg, "Station address, derived from the machine ID by default.")
}

// AddCmds adds more commands, used during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(url string, addr radio.Addr) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		URL:         url,
		Addr:        addr,
		Shell:       ishell.New(),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(detachedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeJoined wraps command func requires a session.
func MustBeJoined(fn func(c *ishell.Context, s *Session)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := ShellFrom(c).Session
		if s == nil {
			c.Err(fmt.Errorf("not joined"))
			return
		}
		fn(c, s)
	}
}

// Print writes v as JSON or with the text formatter.
func (s *Shell) Print(c *ishell.Context, v interface{}, text string) {
	if !s.OutputJSON {
		c.Println(text)
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// WithAutoJoin sets AutoJoin.
func (s *Shell) WithAutoJoin(en bool) *Shell {
	s.AutoJoin = en
	return s
}

// Join joins the hub, leaving the current session.
func (s *Shell) Join(url string, addr radio.Addr) error {
	session, err := Join(url, addr, func(f *radio.Frame) {
		s.Shell.Println(FormatFrame(f))
	})
	if err != nil {
		return err
	}
	s.Leave()
	s.Session, s.URL, s.Addr = session, url, addr
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", addr))
	return nil
}

// Leave closes the current session.
func (s *Shell) Leave() {
	if s.Session != nil {
		s.Session.Close()
		s.Session = nil
		s.Shell.SetPrompt(detachedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoJoin {
		if s.Interactive {
			s.Shell.Printf("Joining %s as %s ...\n", s.URL, s.Addr)
		}
		if err := s.Join(s.URL, s.Addr); err != nil {
			log.Fatalf("join %q failed: %v", s.URL, err)
		}
		defer s.Leave()
	}
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	addr, err := stationAddr()
	if err != nil {
		log.Fatalln(err)
	}
	New(airURL, addr).WithAutoJoin(true).Run(flag.Args()...)
}

func stationAddr() (radio.Addr, error) {
	if stationArg != "" {
		return radio.ParseAddr(stationArg)
	}
	return env.StationAddr("espcli")
}
