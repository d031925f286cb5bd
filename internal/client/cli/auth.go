package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/dmitrijs2005/pledgeboard/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a user id and password, checks them against the
// account rules and creates the account on the server.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter user id (3-20 letters or digits)", a.out)
	if err != nil {
		return err
	}
	if err := common.ValidateUserID(userName); err != nil {
		fmt.Fprintln(a.out, err)
		return err
	}

	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := common.ValidatePassword(string(password)); err != nil {
		fmt.Fprintln(a.out, err)
		return err
	}

	if err := a.client.Register(ctx, userName, string(password)); err != nil {
		log.Printf("Registration unsuccessful: %s", err.Error())
		return err
	}

	fmt.Fprintln(a.out, "Success!")
	return nil
}

// Login prompts for credentials and opens a session on the server.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter user id", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.client.Login(ctx, userName, string(password)); err != nil {
		log.Printf("Login unsuccessful: %s", err.Error())
		return err
	}

	log.Printf("Login successful")
	a.userName = userName
	return nil
}

// Logout ends the server session. The local state is cleared even when
// the server could not be told.
func (a *App) Logout(ctx context.Context) error {
	err := a.client.Logout(ctx)
	a.userName = ""
	if err != nil {
		log.Printf("Logout: %s", err.Error())
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
