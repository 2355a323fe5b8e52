package main

import (
	"github.com/intervju/skriba/internal/app/clean"
	"github.com/labstack/gommon/color"
)

func main() {
	printBanner()
	clean.Execute()
}

var (
	version string
)

func printBanner() {
	banner := `
         __         _ __
   _____/ /________(_) /_  ____ _
  / ___/ //_/ ___/ / __ \/ __ '/
 (__  ) ,< / /  / / /_/ / /_/ /
/____/_/|_/_/  /_/_.___/\__,_/
                  _________  ____ _____
                 / ___/ _ \/ __ '/ __ \
                / /__/  __/ /_/ / / / /
                \___/\___/\__,_/_/ /_/  v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("github.com/intervju/skriba"))
}
