// Package command runs external programs (systemctl, docker, wg, ufw,
// apt-get) with a bounded runtime and captured output.
//
// Everything in vpsgate that shells out goes through the [Runner]
// interface so phases can be tested with a scripted fake.
package command
