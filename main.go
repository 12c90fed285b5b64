// Copyright 2026 Mikhail Klementev. All rights reserved.
// Use of this source code is governed by a AGPLv3 license
// (or later) that can be found in the LICENSE file.

package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"code.dumpstack.io/tools/salt-bootstrap/cmd"
	"code.dumpstack.io/tools/salt-bootstrap/config/dotfiles"

	_ "code.dumpstack.io/tools/salt-bootstrap/distro/alpine"
	_ "code.dumpstack.io/tools/salt-bootstrap/distro/arch"
	_ "code.dumpstack.io/tools/salt-bootstrap/distro/debian"
	_ "code.dumpstack.io/tools/salt-bootstrap/distro/freebsd"
	_ "code.dumpstack.io/tools/salt-bootstrap/distro/opensuse"
	_ "code.dumpstack.io/tools/salt-bootstrap/distro/redhat"
	_ "code.dumpstack.io/tools/salt-bootstrap/distro/ubuntu"
	_ "code.dumpstack.io/tools/salt-bootstrap/saltconfig"
	_ "code.dumpstack.io/tools/salt-bootstrap/service"
)

type CLI struct {
	cmd.Globals

	Stable  cmd.StableCmd  `cmd:"" help:"install salt from the stable package repository"`
	Testing cmd.TestingCmd `cmd:"" help:"install salt from the testing package repository"`
	Daily   cmd.DailyCmd   `cmd:"" help:"install daily salt builds"`
	Git     cmd.GitCmd     `cmd:"" help:"install salt from source"`

	List    cmd.ListCmd    `cmd:"" help:"list supported distros"`
	History cmd.HistoryCmd `cmd:"" help:"show past bootstrap runs"`

	Loglevel string `enum:"trace,debug,info,warn,error" default:"info" help:"console log level"`
}

type LevelWriter struct {
	io.Writer
	Level zerolog.Level
}

func (lw *LevelWriter) WriteLevel(l zerolog.Level, p []byte) (n int, err error) {
	if l >= lw.Level {
		return lw.Writer.Write(p)
	}
	return len(p), nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("salt-bootstrap"),
		kong.Description("multi-distribution salt installer"),
		kong.UsageOnError(),
	)

	level, err := zerolog.ParseLevel(cli.Loglevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr}

	// the file always gets everything, the console only what was
	// asked for
	file := &lumberjack.Logger{
		Filename:   dotfiles.File("logs/salt-bootstrap.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 8,
		Compress:   true,
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(
		&LevelWriter{Writer: console, Level: level},
		&LevelWriter{Writer: file, Level: zerolog.TraceLevel},
	)).With().Timestamp().Logger()

	err = ctx.Run(&cli.Globals)
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}
}
