/*
Package updater is a client-side game-asset synchronization engine.

It keeps a local game directory in sync with a remote JSON manifest, and can replace its
own executable when the manifest names a newer launcher build.

Outline

A client holds a small on-disk Config: the last committed game version, the last committed
launcher version, a manifest URL, and a target game directory. Config.ToSettings converts
this, plus a logger, into an immutable Settings record, which is threaded into every
component below rather than re-read from a mutable config on every call.

The Orchestrator drives two entry points. CheckForUpdates fetches the manifest and decides
whether a game update is available, without changing the game directory. ForceUpdate applies one: in hash
mode it runs FileSync and DirSync against the manifest's file and directory lists; in
version mode it either walks an IncrementalPlanner-chosen chain of delta archives, or falls
back to a full directory-by-directory replacement.

Before either of those runs, CheckForUpdates compares the manifest's launcher version
against the locally committed one. If the manifest names a newer launcher, SelfUpdater
downloads and verifies the new binary, commits the new launcher version, and launches a
detached helper process that waits for this process to exit, replaces the running
executable, and relaunches it.

Consistency provides the hash-mode "is everything actually in sync" check independent of
version comparison, used both by CheckForUpdates and available standalone for a repair
check. Manifest, FileEntry, DirEntry, Package, and Launcher are the typed records the
remote JSON decodes into; Fetcher is the sole HTTP collaborator everything else downloads
through, carrying a low-speed watchdog and a retry policy.

A staging directory, namespaced by process id, a monotonic counter, and a uuid, backs
every archive-based operation (DirSync, the incremental applier, the legacy full
version-mode path). DirSync and the incremental applier extract into staging and copy
into the target afterwards, so a failed extraction leaves the target tree untouched; the
legacy full version-mode path keeps only the downloaded archive in staging and extracts
straight into the target.
*/
package updater
