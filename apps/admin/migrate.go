package main

import (
	"github.com/kokokojo2/desk2-virtual-university-backend/storage/database"
)

func (cli *commandLine) migrate(args []string) error {
	command := "up"
	arguments := make([]string, 0)
	if len(args) > 0 {
		command = args[0]
		arguments = append(arguments, args[1:]...)
	}
	return database.MigrateCmd(cli.db, command, arguments...)
}
