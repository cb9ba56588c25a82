package cmd

import (
	_ "devhost-keeper/cmd/bootstrap"
	_ "devhost-keeper/cmd/credentials"
	_ "devhost-keeper/cmd/detect"
	_ "devhost-keeper/cmd/report"
	_ "devhost-keeper/cmd/root"
	_ "devhost-keeper/cmd/server"
	_ "devhost-keeper/cmd/service"
)
