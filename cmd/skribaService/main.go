package main

import (
	"github.com/intervju/skriba/internal/app/skriba"
	"github.com/labstack/gommon/color"
)

func main() {
	printBanner()
	skriba.Execute()
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
                  _____ ___  ______   __(_)_________
                 / ___/ _ \/ ___/ | / / / ___/ _ \
                (__  )  __/ /   | |/ / / /__/  __/
               /____/\___/_/    |___/_/\___/\___/   v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("github.com/intervju/skriba"))
}
