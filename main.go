/*
Copyright © 2026 JACOB ARTHURS
*/
package main

import "github.com/sqltriage/sqltriage/cmd"

func main() {
	cmd.Execute()
}
