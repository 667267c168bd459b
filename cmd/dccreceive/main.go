// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

// Command dccreceive accepts one DCC SEND transfer on a fixed local port
// and writes the file to disk, printing progress to stderr.
package main

import (
	"fmt"
	"log"
	"os"

	flags "github.com/jessevdk/go-flags"

	irc "github.com/jaraco/irc"
)

type options struct {
	Port int    `short:"p" long:"port" description:"local port to listen on" required:"true"`
	Bind string `short:"b" long:"bind" description:"local address to bind" default:"0.0.0.0"`
	Out  string `short:"o" long:"output" description:"output file path" required:"true"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	f, err := os.Create(opts.Out)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	conn := irc.NewDCCConn(irc.DCCRaw)

	recv := &irc.DCCFileReceiver{Out: f}
	conn.AddHandler(irc.DCCMSG, 0, recv.Handle)
	conn.AddHandler(irc.DCC_CONNECT, 0, func(c *irc.DCCConn, e irc.Event) irc.HandlerResult {
		addr, port := c.PeerAddr()
		fmt.Fprintf(os.Stderr, "connection from %s:%d\n", addr, port)
		return irc.Continue
	})

	port, err := conn.ListenPort(opts.Bind, opts.Port)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Fprintf(os.Stderr, "waiting for a connection on %s:%d...\n", opts.Bind, port)

	<-conn.Done()
	fmt.Fprintf(os.Stderr, "transfer complete: %d bytes\n", recv.Received)
}
