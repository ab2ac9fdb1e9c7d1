package build

import "github.com/stevehiehn/relaypub/internal/runner"

// Dotnet publishes with `dotnet publish`.
type Dotnet struct{}

func (d *Dotnet) Name() string { return "dotnet" }

func (d *Dotnet) PublishCommand(project, outDir, workDir string, s Settings) runner.CommandSpec {
	args := []string{"publish", project}
	if s.Profile != "" {
		args = append(args, "-p:PublishProfile="+s.Profile)
	}
	if s.Configuration != "" {
		args = append(args, "-c", s.Configuration)
	}
	args = append(args, "-p:PublishDir="+withTrailingSeparator(outDir))
	for _, p := range sortedProperties(s.Properties) {
		args = append(args, "-p:"+p)
	}
	return runner.CommandSpec{Program: "dotnet", Args: args, Dir: workDir}
}

func (d *Dotnet) VersionCommand() runner.CommandSpec {
	return runner.CommandSpec{Program: "dotnet", Args: []string{"--version"}}
}

// MSBuild publishes with the Publish target of `msbuild`.
type MSBuild struct{}

func (m *MSBuild) Name() string { return "msbuild" }

func (m *MSBuild) PublishCommand(project, outDir, workDir string, s Settings) runner.CommandSpec {
	args := []string{project, "/t:Publish"}
	if s.Profile != "" {
		args = append(args, "/p:PublishProfile="+s.Profile)
	}
	if s.Configuration != "" {
		args = append(args, "/p:Configuration="+s.Configuration)
	}
	args = append(args, "/p:PublishDir="+withTrailingSeparator(outDir))
	for _, p := range sortedProperties(s.Properties) {
		args = append(args, "/p:"+p)
	}
	return runner.CommandSpec{Program: "msbuild", Args: args, Dir: workDir}
}

func (m *MSBuild) VersionCommand() runner.CommandSpec {
	return runner.CommandSpec{Program: "msbuild", Args: []string{"-version", "-nologo"}}
}
