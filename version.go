package main

import "fmt"

var (
	version   string = "dev"
	gitSHA1   string = "unknown"
	buildDate string = "unknown"
)

func Version() string {
	return fmt.Sprintf("%s (git:%s, built:%s)", version, gitSHA1, buildDate)
}
