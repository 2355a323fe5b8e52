package main

import (
	"github.com/intervju/skriba/internal/app/inform"
	"github.com/labstack/gommon/color"
)

func main() {
	printBanner()
	inform.Execute()
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
               _       ____
              (_)___  / __/___  _________ ___
             / / __ \/ /_/ __ \/ ___/ __ '__ \
            / / / / / __/ /_/ / /  / / / / / /
           /_/_/ /_/_/  \____/_/  /_/ /_/ /_/  v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("github.com/intervju/skriba"))
}
