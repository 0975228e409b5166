package formdraft

// Version is the release version. Builds set it with
// -ldflags "-X github.com/aretw0/formdraft.Version=v1.2.3".
var Version = "dev"
