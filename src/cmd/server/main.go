package main

func main() {
	registerCommands(
		newServeCommand(),
		newMigrateCommand(),
		newProvisionCommand(),
	)

	execute()
}
