package main

import "github.com/ValentinKolb/lsrv/cmd"

func main() {
	cmd.Execute()
}
