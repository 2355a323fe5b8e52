package main

import (
	"github.com/intervju/skriba/internal/app/pipeline"
	"github.com/labstack/gommon/color"
)

func main() {
	printBanner()
	pipeline.Execute()
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
              ____  (_)___  ___  / (_)___  ___
             / __ \/ / __ \/ _ \/ / / __ \/ _ \
            / /_/ / / /_/ /  __/ / / / / /  __/
           / .___/_/ .___/\___/_/_/_/ /_/\___/  v: %s
          /_/     /_/
%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("github.com/intervju/skriba"))
}
