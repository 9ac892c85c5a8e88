/*
Package config defines and loads the knockd configuration.

The canonical encoding is a JSON document with the capture interface, the
inactivity timeout for partial sequences, and the rule list; files ending in
.yaml or .yml are parsed as YAML instead. All timeouts are milliseconds.

	{
	  "interface": "eth0",
	  "timeout": 5000,
	  "rules": [
	    {
	      "name": "enable ssh",
	      "sequence": [7000, 8000, 9000],
	      "activate": "iptables -A INPUT -s %IP% -p tcp --dport 22 -j ACCEPT",
	      "deactivate": "iptables -D INPUT -s %IP% -p tcp --dport 22 -j ACCEPT",
	      "timeout": 3600000
	    }
	  ]
	}
*/
package config
