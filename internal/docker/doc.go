// Package docker runs pipeline commands inside throw-away containers.
//
// Launcher implements runner.Launcher on top of the Docker Engine SDK:
// every Command becomes one labelled container with the project paths
// bind-mounted at their host locations. Labels (splat-orbit.*) are the
// only state kept in the daemon; ListManagedContainers and Prune use them
// to find containers a crashed run left behind.
package docker
