package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sadopc/gomibako/internal/ui/theme"
)

func completionCmd() {
	fs := flag.NewFlagSet("completion", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gomibako completion <bash|zsh|fish>\n\n")
		fmt.Fprintf(os.Stderr, "Generate shell completion scripts.\n\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  gomibako completion bash > /usr/local/etc/bash_completion.d/gomibako\n")
		fmt.Fprintf(os.Stderr, "  gomibako completion zsh > \"${fpath[1]}/_gomibako\"\n")
		fmt.Fprintf(os.Stderr, "  gomibako completion fish > ~/.config/fish/completions/gomibako.fish\n")
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: shell name is required (bash, zsh, or fish)\n\n")
		fs.Usage()
		os.Exit(1)
	}

	script, err := completionScript(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(script)
}

func completionScript(shell string) (string, error) {
	themes := strings.Join(theme.Names(), " ")
	switch shell {
	case "bash":
		return fmt.Sprintf(bashCompletion, themes), nil
	case "zsh":
		return fmt.Sprintf(zshCompletion, themes), nil
	case "fish":
		return fmt.Sprintf(fishCompletion, themes), nil
	}
	return "", fmt.Errorf("unsupported shell %q (use bash, zsh, or fish)", shell)
}

const bashCompletion = `# bash completion for gomibako                           -*- shell-script -*-

_gomibako() {
    local cur prev words cword
    _init_completion || return

    local commands="tail serve new sessions completion version help"

    local feed_flags="--server --transport"
    local tui_flags="${feed_flags} --theme --version"
    local tail_flags="${feed_flags} --where --where-timeout --har --verbose"
    local serve_flags="--host --port --session-ttl --history --dev --log-level"
    local new_flags="--server --quiet"
    local sessions_flags="--limit --clear"

    case "${prev}" in
        --transport)
            COMPREPLY=($(compgen -W "sse websocket" -- "${cur}"))
            return
            ;;
        --theme)
            COMPREPLY=($(compgen -W "%s" -- "${cur}"))
            return
            ;;
        --log-level)
            COMPREPLY=($(compgen -W "debug info warn error" -- "${cur}"))
            return
            ;;
        --har)
            _filedir
            return
            ;;
        --server|--where|--where-timeout|--host|--port|--session-ttl|--history|--limit)
            return
            ;;
    esac

    if [[ ${cword} -eq 1 ]]; then
        if [[ "${cur}" == -* ]]; then
            COMPREPLY=($(compgen -W "${tui_flags}" -- "${cur}"))
        else
            COMPREPLY=($(compgen -W "${commands}" -- "${cur}"))
        fi
        return
    fi

    case "${words[1]}" in
        tail)
            COMPREPLY=($(compgen -W "${tail_flags}" -- "${cur}"))
            ;;
        serve)
            COMPREPLY=($(compgen -W "${serve_flags}" -- "${cur}"))
            ;;
        new)
            COMPREPLY=($(compgen -W "${new_flags}" -- "${cur}"))
            ;;
        sessions)
            COMPREPLY=($(compgen -W "${sessions_flags}" -- "${cur}"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "${cur}"))
            ;;
        *)
            COMPREPLY=($(compgen -W "${tui_flags}" -- "${cur}"))
            ;;
    esac
}

complete -F _gomibako gomibako
`

const zshCompletion = `#compdef gomibako

# zsh completion for gomibako

_gomibako() {
    local -a commands
    commands=(
        'tail:Print captured requests to stdout as they arrive'
        'serve:Run a local capture server'
        'new:Create a session on the server'
        'sessions:List recently inspected sessions'
        'completion:Generate shell completion scripts'
        'version:Print version information'
        'help:Show help message'
    )

    _arguments -C \
        '--server[Server used for bare session keys]:url:' \
        '--transport[Feed transport]:transport:(sse websocket)' \
        '--theme[Color theme]:theme:(%s)' \
        '1:command or session key:->command' \
        '*::arg:->args'

    case $state in
        command)
            _describe -t commands 'gomibako commands' commands
            ;;
        args)
            case $words[1] in
                tail)
                    _arguments \
                        '--server[Server used for bare session keys]:url:' \
                        '--transport[Feed transport]:transport:(sse websocket)' \
                        '--where[JavaScript predicate over req]:script:' \
                        '--where-timeout[Time limit for one --where evaluation]:duration:' \
                        '--har[Write printed requests as HAR on exit]:file:_files' \
                        '--verbose[Log feed events to stderr]' \
                        '1:session key or inspect URL:'
                    ;;
                serve)
                    _arguments \
                        '--host[Interface to listen on]:host:' \
                        '--port[Port to listen on]:port:' \
                        '--session-ttl[Drop sessions idle for longer than this]:duration:' \
                        '--history[Requests replayed to a new subscriber]:count:' \
                        '--dev[Relax security headers]' \
                        '--log-level[Log level]:level:(debug info warn error)'
                    ;;
                new)
                    _arguments \
                        '--server[Server to create the session on]:url:' \
                        '--quiet[Print only the session key]'
                    ;;
                sessions)
                    _arguments \
                        '--limit[Maximum sessions to list]:count:' \
                        '--clear[Forget all recent sessions]'
                    ;;
                completion)
                    _arguments \
                        '1:shell:(bash zsh fish)'
                    ;;
            esac
            ;;
    esac
}

_gomibako "$@"
`

const fishCompletion = `# fish completion for gomibako

complete -c gomibako -f

# Subcommands
complete -c gomibako -n '__fish_use_subcommand' -a tail -d 'Print captured requests to stdout as they arrive'
complete -c gomibako -n '__fish_use_subcommand' -a serve -d 'Run a local capture server'
complete -c gomibako -n '__fish_use_subcommand' -a new -d 'Create a session on the server'
complete -c gomibako -n '__fish_use_subcommand' -a sessions -d 'List recently inspected sessions'
complete -c gomibako -n '__fish_use_subcommand' -a completion -d 'Generate shell completion scripts'
complete -c gomibako -n '__fish_use_subcommand' -a version -d 'Print version information'
complete -c gomibako -n '__fish_use_subcommand' -a help -d 'Show help message'

# inspect flags
complete -c gomibako -l server -d 'Server used for bare session keys' -r
complete -c gomibako -l transport -d 'Feed transport' -ra 'sse websocket'
complete -c gomibako -n '__fish_use_subcommand' -l theme -d 'Color theme' -ra '%s'

# tail flags
complete -c gomibako -n '__fish_seen_subcommand_from tail' -l where -d 'JavaScript predicate over req' -r
complete -c gomibako -n '__fish_seen_subcommand_from tail' -l where-timeout -d 'Time limit for one --where evaluation' -r
complete -c gomibako -n '__fish_seen_subcommand_from tail' -l har -d 'Write printed requests as HAR on exit' -rF
complete -c gomibako -n '__fish_seen_subcommand_from tail' -l verbose -d 'Log feed events to stderr'

# serve flags
complete -c gomibako -n '__fish_seen_subcommand_from serve' -l host -d 'Interface to listen on' -r
complete -c gomibako -n '__fish_seen_subcommand_from serve' -l port -d 'Port to listen on' -r
complete -c gomibako -n '__fish_seen_subcommand_from serve' -l session-ttl -d 'Drop sessions idle for longer than this' -r
complete -c gomibako -n '__fish_seen_subcommand_from serve' -l history -d 'Requests replayed to a new subscriber' -r
complete -c gomibako -n '__fish_seen_subcommand_from serve' -l dev -d 'Relax security headers'
complete -c gomibako -n '__fish_seen_subcommand_from serve' -l log-level -d 'Log level' -ra 'debug info warn error'

# new flags
complete -c gomibako -n '__fish_seen_subcommand_from new' -l quiet -d 'Print only the session key'

# sessions flags
complete -c gomibako -n '__fish_seen_subcommand_from sessions' -l limit -d 'Maximum sessions to list' -r
complete -c gomibako -n '__fish_seen_subcommand_from sessions' -l clear -d 'Forget all recent sessions'

# completion - shell names
complete -c gomibako -n '__fish_seen_subcommand_from completion' -a 'bash zsh fish' -d 'Shell type'
`
