package main

import "payroll-auditor/cmd"

func main() {
	cmd.Execute()
}
