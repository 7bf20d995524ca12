package domain

import "io"

// Input is the stdin of the first process in a chain. The zero value means
// the process reads nothing.
type Input struct {
	File     string
	Generate func(w io.Writer) error
}

// FromFile feeds a file to the chain.
func FromFile(path string) Input { return Input{File: path} }

// FromGenerator feeds text produced in process to the chain.
func FromGenerator(fn func(w io.Writer) error) Input { return Input{Generate: fn} }

// Output is the stdout of the last process in a chain. The zero value
// discards it.
type Output struct {
	File    string
	Consume func(r io.Reader) error
}

// ToFile redirects the chain's output into a file.
func ToFile(path string) Output { return Output{File: path} }

// ToConsumer hands the chain's output to an in-process reader.
func ToConsumer(fn func(r io.Reader) error) Output { return Output{Consume: fn} }

// Process is one external tool invocation. Tool is a logical name that the
// runner resolves to a binary.
type Process struct {
	Tool string
	Args []string
}

// Cmd builds a Process.
func Cmd(tool string, args ...string) Process {
	return Process{Tool: tool, Args: args}
}

// Stage is a pipe chain: each process's stdout feeds the next one's stdin.
// Produces lists the files the stage writes; they are removed if any stage
// of the invocation fails.
type Stage struct {
	Name     string
	Chain    []Process
	Input    Input
	Output   Output
	Produces []string
}

// Invocation is one build attempt: stages run strictly in order and share
// one log file.
type Invocation struct {
	Name    string
	LogPath string
	Stages  []Stage
}
