// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

// Command irccat connects to a server, joins a channel, and pipes stdin to
// it line by line while printing everything the channel says to stdout --
// the netcat of IRC.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	flags "github.com/jessevdk/go-flags"

	irc "github.com/jaraco/irc"
)

type options struct {
	Server  string `short:"s" long:"server" description:"server to connect to" required:"true"`
	Port    int    `short:"p" long:"port" description:"port to connect to" default:"6667"`
	Nick    string `short:"n" long:"nick" description:"nickname to use" default:"irccat"`
	Channel string `short:"c" long:"channel" description:"channel to join" required:"true"`
	TLS     bool   `long:"tls" description:"use a TLS-wrapped connection"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	conn := irc.NewServerConn(irc.Config{
		Server: opts.Server,
		Port:   opts.Port,
		Nick:   opts.Nick,
		User:   opts.Nick,
		SSL:    opts.TLS,
		Out:    os.Stderr,
	})

	conn.Handlers.Add("RPL_WELCOME", func(c *irc.ServerConn, e irc.Event) irc.HandlerResult {
		if err := c.Cmd.Join(opts.Channel); err != nil {
			log.Println(err)
		}
		return irc.Continue
	})

	conn.Handlers.Add(irc.PUBMSG, func(c *irc.ServerConn, e irc.Event) irc.HandlerResult {
		var from string
		if e.Source != nil {
			from = e.Source.Name
		}
		fmt.Printf("<%s> %s\n", from, e.Last())
		return irc.Continue
	})

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), "\r\n")
			if line == "" {
				continue
			}
			if err := conn.Cmd.Message(opts.Channel, line); err != nil {
				log.Println(err)
			}
		}
	}()

	if err := conn.Connect(); err != nil {
		log.Fatal(err)
	}
}
