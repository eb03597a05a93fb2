package sh

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/espnow.go/pkg/radio"
)

var (
	// JoinCmd joins the air hub.
	JoinCmd = ishell.Cmd{
		Name:    "join",
		Aliases: []string{"j"},
		Help:    "[URL] [ADDR]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			url, addr := s.URL, s.Addr
			if len(c.Args) > 0 {
				url = c.Args[0]
			}
			if len(c.Args) > 1 {
				var err error
				if addr, err = radio.ParseAddr(c.Args[1]); err != nil {
					c.Err(err)
					return
				}
			}
			if err := s.Join(url, addr); err != nil {
				c.Err(err)
			}
		},
	}

	// LeaveCmd leaves the air hub.
	LeaveCmd = ishell.Cmd{
		Name:    "leave",
		Aliases: []string{"l"},
		Func: func(c *ishell.Context) {
			ShellFrom(c).Leave()
		},
	}

	// AssocCmd associates with an access point.
	AssocCmd = ishell.Cmd{
		Name:    "assoc",
		Aliases: []string{"a"},
		Help:    "SSID [PASSWORD] [CHANNEL]",
		Func: MustBeJoined(func(c *ishell.Context, s *Session) {
			creds, err := ParseCredentials(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			state, err := s.Associate(creds)
			if err != nil {
				c.Err(err)
				return
			}
			ShellFrom(c).Print(c, state, state.String())
		}),
	}

	// StateCmd prints the association state.
	StateCmd = ishell.Cmd{
		Name:    "state",
		Aliases: []string{"st"},
		Func: MustBeJoined(func(c *ishell.Context, s *Session) {
			state := s.Supervisor.State()
			ShellFrom(c).Print(c, state, state.String())
		}),
	}

	// ChannelCmd prints or sets the radio channel.
	ChannelCmd = ishell.Cmd{
		Name:    "channel",
		Aliases: []string{"ch"},
		Help:    "[CHANNEL]",
		Func: MustBeJoined(func(c *ishell.Context, s *Session) {
			if len(c.Args) > 0 {
				ch, err := strconv.Atoi(c.Args[0])
				if err != nil {
					c.Err(fmt.Errorf("invalid CHANNEL: %v", err))
					return
				}
				if err := s.Radio.SetChannel(ch); err != nil {
					c.Err(err)
					return
				}
			}
			ch := s.Radio.Channel()
			ShellFrom(c).Print(c, ch, strconv.Itoa(ch))
		}),
	}

	// SendCmd sends a frame.
	SendCmd = ishell.Cmd{
		Name:     "send",
		Aliases:  []string{"s"},
		Help:     "DST|* PAYLOAD...",
		LongHelp: "Sends PAYLOAD to DST, * is the broadcast address.",
		Func: MustBeJoined(func(c *ishell.Context, s *Session) {
			dst, payload, err := ParseSend(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			outcome, err := s.Send(dst, payload)
			if err != nil {
				c.Err(err)
				return
			}
			ShellFrom(c).Print(c, outcome.String(), outcome.String())
		}),
	}
)
