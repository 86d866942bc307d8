package main

import (
	"log"
	"os"
	"rebalancer/cmd"
	"rebalancer/internal/util"
)

func main() {
	secrets, err := util.LoadSecrets()
	if err != nil {
		log.Fatal(err)
	}
	apiHandler, err := cmd.InitializeDependenciesFromSecrets(secrets)
	if err != nil {
		log.Fatal(err)
	}
	defer cmd.CloseDependencies(apiHandler)

	apiHandler.Logger.Infow("starting api", "port", secrets.Port, "commitHash", os.Getenv("commit_hash"))
	err = apiHandler.StartApi(secrets.Port)
	if err != nil {
		log.Fatal(err)
	}
}
