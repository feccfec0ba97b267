package main

import "github.com/frahmantamala/gym-storefront/cmd"

func main() {
	cmd.Execute()
}
